package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"foodshare/internal/foodapi"
	"foodshare/internal/identity"
	"foodshare/internal/imagehost"
	"foodshare/internal/metrics"
	"foodshare/pkg/types"

	firebase "firebase.google.com/go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// deps holds the AWS config once, so cognito and s3 share it.
type deps struct {
	config *types.Config
	logger *logrus.Logger

	aws    *aws.Config
	awsErr error
}

func (d *deps) awsConfig(ctx context.Context) (aws.Config, error) {
	if d.aws == nil && d.awsErr == nil {
		cfg, err := loadAWSConfig(ctx)
		d.aws, d.awsErr = &cfg, err
	}
	if d.awsErr != nil {
		return aws.Config{}, d.awsErr
	}
	return *d.aws, nil
}

func (d *deps) foodClient(m *metrics.Metrics) (*foodapi.Client, error) {
	return foodapi.New(
		d.config.APIBaseURL,
		foodapi.WithHTTPClient(&http.Client{Timeout: time.Duration(d.config.APITimeoutSec) * time.Second}),
		foodapi.WithLogger(d.logger),
		foodapi.WithMetrics(m),
		foodapi.WithIdentityHeaders(d.config.APIIdentityHeaders),
	)
}

// provider builds the identity provider named by AUTH_PROVIDER. The JWKS
// cache of the cognito provider lives as long as ctx.
func (d *deps) provider(ctx context.Context) (identity.Provider, error) {
	redirectURL := d.config.PublicURL + "/auth/callback"

	switch d.config.AuthProvider {
	case "cognito":
		awsConfig, err := d.awsConfig(ctx)
		if err != nil {
			return nil, err
		}

		verifier, err := identity.NewJWKSVerifier(ctx, d.config.CognitoIssuerURL, d.config.CognitoClientID)
		if err != nil {
			return nil, err
		}

		return identity.NewCognito(
			cognitoidentityprovider.NewFromConfig(awsConfig),
			verifier,
			identity.CognitoConfig{
				ClientID:     d.config.CognitoClientID,
				ClientSecret: d.config.CognitoClientSecret,
				Domain:       d.config.CognitoDomain,
				RedirectURL:  redirectURL,
			},
			d.logger,
		), nil

	case "firebase":
		var opts []option.ClientOption
		switch {
		case d.config.FirebaseCredentialsB64 != "":
			raw, err := base64.StdEncoding.DecodeString(d.config.FirebaseCredentialsB64)
			if err != nil {
				return nil, fmt.Errorf("decode firebase service account: %w", err)
			}
			opts = append(opts, option.WithCredentialsJSON(raw))
		case d.config.FirebaseCredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(d.config.FirebaseCredentialsFile))
		}

		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: d.config.FirebaseProjectID}, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
		}

		admin, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
		}

		toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(d.config.FirebaseAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize identity toolkit: %w", err)
		}

		return identity.NewFirebase(
			identity.NewRelyingParty(toolkit),
			admin,
			identity.FirebaseConfig{
				GoogleClientID:     d.config.GoogleClientID,
				GoogleClientSecret: d.config.GoogleClientSecret,
				RedirectURL:        redirectURL,
			},
			d.logger,
		), nil
	}

	return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", d.config.AuthProvider)
}

func (d *deps) uploader(ctx context.Context, m *metrics.Metrics) (imagehost.Uploader, error) {
	switch d.config.ImageHost {
	case "imgbb":
		return imagehost.NewImgBB(d.config.ImgBBEndpoint, d.config.ImgBBKey, d.logger, m), nil
	case "s3":
		awsConfig, err := d.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return imagehost.NewS3(s3.NewFromConfig(awsConfig), d.config.S3BucketName, d.config.S3PublicBaseURL, m), nil
	}

	return nil, fmt.Errorf("unknown IMAGE_HOST %q", d.config.ImageHost)
}
