package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"foodshare/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	// A missing dotenv file is fine; the environment may already be set.
	if err := godotenv.Load(cCtx.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 30
	}

	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	return c, nil
}

// validateServeConfig checks what serve needs beyond the shared settings.
func validateServeConfig(c *types.Config) error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("set API_BASE_URL")
	}

	if err := validateKey("COOKIE_HASH_KEY", c.CookieHashKey, 32, 64); err != nil {
		return err
	}
	if err := validateKey("COOKIE_BLOCK_KEY", c.CookieBlockKey, 16, 24, 32); err != nil {
		return err
	}

	if err := validateAuthConfig(c); err != nil {
		return err
	}

	switch c.ImageHost {
	case "imgbb":
		if c.ImgBBKey == "" {
			return fmt.Errorf("set IMGBB_KEY")
		}
	case "s3":
		if c.S3BucketName == "" {
			return fmt.Errorf("set S3_BUCKET_NAME")
		}
	default:
		return fmt.Errorf("unknown IMAGE_HOST %q, want imgbb or s3", c.ImageHost)
	}

	return nil
}

func validateAuthConfig(c *types.Config) error {
	switch c.AuthProvider {
	case "cognito":
		if c.CognitoClientID == "" || c.CognitoIssuerURL == "" {
			return fmt.Errorf("set COGNITO_CLIENT_ID and COGNITO_ISSUER_URL")
		}
	case "firebase":
		if c.FirebaseProjectID == "" || c.FirebaseAPIKey == "" {
			return fmt.Errorf("set FIREBASE_PROJECT_ID and FIREBASE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q, want cognito or firebase", c.AuthProvider)
	}
	return nil
}

func validateKey(name, value string, sizes ...int) error {
	if value == "" {
		return fmt.Errorf("set %s, see `foodshare keys`", name)
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%s is not valid base64: %w", name, err)
	}

	for _, size := range sizes {
		if len(raw) == size {
			return nil
		}
	}
	return fmt.Errorf("%s decodes to %d bytes, want one of %v", name, len(raw), sizes)
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
