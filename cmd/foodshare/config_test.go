package main

import (
	"encoding/base64"
	"testing"

	"foodshare/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
)

func validConfig() *types.Config {
	return &types.Config{
		APIBaseURL:       "http://localhost:5000",
		CookieHashKey:    base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(64)),
		CookieBlockKey:   base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
		AuthProvider:     "cognito",
		CognitoClientID:  "client",
		CognitoIssuerURL: "https://cognito-idp.us-east-1.amazonaws.com/pool",
		ImageHost:        "imgbb",
		ImgBBKey:         "key",
	}
}

func TestValidateServeConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *types.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*types.Config) {}},
		{name: "missing api", mutate: func(c *types.Config) { c.APIBaseURL = "" }, wantErr: "API_BASE_URL"},
		{name: "short hash key", mutate: func(c *types.Config) {
			c.CookieHashKey = base64.StdEncoding.EncodeToString([]byte("short"))
		}, wantErr: "COOKIE_HASH_KEY"},
		{name: "bad block key", mutate: func(c *types.Config) { c.CookieBlockKey = "%%%" }, wantErr: "COOKIE_BLOCK_KEY"},
		{name: "unknown provider", mutate: func(c *types.Config) { c.AuthProvider = "ldap" }, wantErr: "AUTH_PROVIDER"},
		{name: "firebase without key", mutate: func(c *types.Config) {
			c.AuthProvider = "firebase"
			c.FirebaseProjectID = "proj"
		}, wantErr: "FIREBASE_API_KEY"},
		{name: "s3 without bucket", mutate: func(c *types.Config) { c.ImageHost = "s3" }, wantErr: "S3_BUCKET_NAME"},
		{name: "imgbb without key", mutate: func(c *types.Config) { c.ImgBBKey = "" }, wantErr: "IMGBB_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := validateServeConfig(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
