package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodshare/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// CognitoAPI is the slice of the Cognito client the provider calls.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	ForgotPassword(ctx context.Context, params *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

type CognitoConfig struct {
	ClientID     string
	ClientSecret string

	// Domain is the hosted UI domain, e.g. https://foodshare.auth.us-east-1.amazoncognito.com.
	// Google sign-in is disabled without it.
	Domain      string
	RedirectURL string
}

type Cognito struct {
	client   CognitoAPI
	verifier TokenVerifier
	config   CognitoConfig
	oauth    *oauth2.Config
	logger   logrus.FieldLogger
}

func NewCognito(client CognitoAPI, verifier TokenVerifier, config CognitoConfig, logger logrus.FieldLogger) *Cognito {
	c := &Cognito{
		client:   client,
		verifier: verifier,
		config:   config,
		logger:   logger,
	}

	if domain := strings.TrimRight(config.Domain, "/"); domain != "" {
		c.oauth = &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  domain + "/oauth2/authorize",
				TokenURL: domain + "/oauth2/token",
			},
		}
	}

	return c
}

// secretHash is required by app clients that have a secret.
func (c *Cognito) secretHash(username string) *string {
	if c.config.ClientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.config.ClientSecret))
	mac.Write([]byte(username + c.config.ClientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func (c *Cognito) SignInEmail(ctx context.Context, email, password string) (*types.Session, error) {
	params := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if hash := c.secretHash(email); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	resp, err := c.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}

	if resp.AuthenticationResult == nil {
		if resp.ChallengeName != "" {
			return nil, fmt.Errorf("%w: %s", ErrChallenge, resp.ChallengeName)
		}
		return nil, errors.New("sign in returned no tokens")
	}

	result := resp.AuthenticationResult
	return c.session(ctx,
		aws.ToString(result.IdToken),
		aws.ToString(result.AccessToken),
		aws.ToString(result.RefreshToken),
		time.Duration(result.ExpiresIn)*time.Second,
	)
}

func (c *Cognito) GoogleSignInURL(state string) (string, error) {
	if c.oauth == nil {
		return "", ErrGoogleDisabled
	}
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("identity_provider", "Google")), nil
}

func (c *Cognito) SignInWithGoogle(ctx context.Context, code string) (*types.Session, error) {
	if c.oauth == nil {
		return nil, ErrGoogleDisabled
	}

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", ErrInvalidToken)
	}

	var lifetime time.Duration
	if !tok.Expiry.IsZero() {
		lifetime = time.Until(tok.Expiry)
	}

	return c.session(ctx, idToken, tok.AccessToken, tok.RefreshToken, lifetime)
}

func (c *Cognito) CreateUser(ctx context.Context, user types.NewUser) (*types.SignUpResult, error) {
	attrs := []ctypes.AttributeType{
		{Name: aws.String("email"), Value: aws.String(user.Email)},
	}
	if user.DisplayName != "" {
		attrs = append(attrs, ctypes.AttributeType{Name: aws.String("name"), Value: aws.String(user.DisplayName)})
	}
	if user.PhotoURL != "" {
		attrs = append(attrs, ctypes.AttributeType{Name: aws.String("picture"), Value: aws.String(user.PhotoURL)})
	}

	out, err := c.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(c.config.ClientID),
		SecretHash:     c.secretHash(user.Email),
		Username:       aws.String(user.Email), // use email as username
		Password:       aws.String(user.Password),
		UserAttributes: attrs,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}

	if !out.UserConfirmed {
		return &types.SignUpResult{ConfirmationRequired: true}, nil
	}

	sess, err := c.SignInEmail(ctx, user.Email, user.Password)
	if err != nil {
		return nil, err
	}

	return &types.SignUpResult{Session: sess}, nil
}

func (c *Cognito) ConfirmUser(ctx context.Context, email, code string) error {
	_, err := c.client.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.config.ClientID),
		SecretHash:       c.secretHash(email),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (c *Cognito) ResetPassword(ctx context.Context, email string) error {
	_, err := c.client.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId:   aws.String(c.config.ClientID),
		SecretHash: c.secretHash(email),
		Username:   aws.String(email),
	})
	if err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (c *Cognito) LogOut(ctx context.Context, sess *types.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return nil
	}

	_, err := c.client.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(sess.AccessToken),
	})
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			// Token already revoked or expired.
			return nil
		}
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (c *Cognito) Verify(ctx context.Context, idToken string) (*types.User, time.Time, error) {
	return c.verifier.Verify(ctx, idToken)
}

func (c *Cognito) session(ctx context.Context, idToken, accessToken, refreshToken string, lifetime time.Duration) (*types.Session, error) {
	user, expires, err := c.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	if expires.IsZero() && lifetime > 0 {
		expires = time.Now().Add(lifetime)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": user.UID,
		"email":   user.Email,
	}).Debug("cognito session established")

	return &types.Session{
		User:         *user,
		IDToken:      idToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expires,
	}, nil
}

func mapCognitoError(err error) error {
	var (
		notAuthorized *ctypes.NotAuthorizedException
		userNotFound  *ctypes.UserNotFoundException
		notConfirmed  *ctypes.UserNotConfirmedException
		userExists    *ctypes.UsernameExistsException
		invalidPw     *ctypes.InvalidPasswordException
		codeMismatch  *ctypes.CodeMismatchException
		expiredCode   *ctypes.ExpiredCodeException
	)

	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &userNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case errors.As(err, &notConfirmed):
		return fmt.Errorf("%w: %w", ErrUserNotConfirmed, err)
	case errors.As(err, &userExists):
		return fmt.Errorf("%w: %w", ErrUserExists, err)
	case errors.As(err, &invalidPw):
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	case errors.As(err, &codeMismatch), errors.As(err, &expiredCode):
		return fmt.Errorf("%w: %w", ErrCodeMismatch, err)
	}

	return err
}
