package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"foodshare/pkg/types"

	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
)

// FirebaseAuth is the slice of the Firebase Admin auth client the provider
// calls.
type FirebaseAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// IdentityToolkit performs the end-user calls of Firebase Authentication.
type IdentityToolkit interface {
	VerifyPassword(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest) (*identitytoolkit.VerifyPasswordResponse, error)
	SignupNewUser(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest) (*identitytoolkit.SignupNewUserResponse, error)
	GetOobConfirmationCode(ctx context.Context, req *identitytoolkit.Relyingparty) (*identitytoolkit.GetOobConfirmationCodeResponse, error)
	VerifyAssertion(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest) (*identitytoolkit.VerifyAssertionResponse, error)
}

// RelyingParty adapts the generated Identity Toolkit service to
// IdentityToolkit.
type RelyingParty struct {
	svc *identitytoolkit.RelyingpartyService
}

func NewRelyingParty(svc *identitytoolkit.Service) *RelyingParty {
	return &RelyingParty{svc: svc.Relyingparty}
}

func (r *RelyingParty) VerifyPassword(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest) (*identitytoolkit.VerifyPasswordResponse, error) {
	return r.svc.VerifyPassword(req).Context(ctx).Do()
}

func (r *RelyingParty) SignupNewUser(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest) (*identitytoolkit.SignupNewUserResponse, error) {
	return r.svc.SignupNewUser(req).Context(ctx).Do()
}

func (r *RelyingParty) GetOobConfirmationCode(ctx context.Context, req *identitytoolkit.Relyingparty) (*identitytoolkit.GetOobConfirmationCodeResponse, error) {
	return r.svc.GetOobConfirmationCode(req).Context(ctx).Do()
}

func (r *RelyingParty) VerifyAssertion(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest) (*identitytoolkit.VerifyAssertionResponse, error) {
	return r.svc.VerifyAssertion(req).Context(ctx).Do()
}

type FirebaseConfig struct {
	// Google OAuth client used for the Google sign-in redirect. Google
	// sign-in is disabled when ClientID is empty.
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
}

type Firebase struct {
	toolkit IdentityToolkit
	admin   FirebaseAuth
	oauth   *oauth2.Config
	config  FirebaseConfig
	logger  logrus.FieldLogger
}

func NewFirebase(toolkit IdentityToolkit, admin FirebaseAuth, config FirebaseConfig, logger logrus.FieldLogger) *Firebase {
	f := &Firebase{
		toolkit: toolkit,
		admin:   admin,
		config:  config,
		logger:  logger,
	}

	if config.GoogleClientID != "" {
		f.oauth = &oauth2.Config{
			ClientID:     config.GoogleClientID,
			ClientSecret: config.GoogleClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		}
	}

	return f
}

func (f *Firebase) SignInEmail(ctx context.Context, email, password string) (*types.Session, error) {
	resp, err := f.toolkit.VerifyPassword(ctx, &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, mapFirebaseError(err)
	}

	return f.session(ctx, resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
}

func (f *Firebase) GoogleSignInURL(state string) (string, error) {
	if f.oauth == nil {
		return "", ErrGoogleDisabled
	}
	return f.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// SignInWithGoogle exchanges the Google code for a Google ID token and trades
// that for a Firebase session.
func (f *Firebase) SignInWithGoogle(ctx context.Context, code string) (*types.Session, error) {
	if f.oauth == nil {
		return nil, ErrGoogleDisabled
	}

	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	googleIDToken, _ := tok.Extra("id_token").(string)
	if googleIDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", ErrInvalidToken)
	}

	body := url.Values{}
	body.Set("id_token", googleIDToken)
	body.Set("providerId", "google.com")

	resp, err := f.toolkit.VerifyAssertion(ctx, &identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        f.config.RedirectURL,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, mapFirebaseError(err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("google sign-in failed: %s", resp.ErrorMessage)
	}

	return f.session(ctx, resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
}

func (f *Firebase) CreateUser(ctx context.Context, user types.NewUser) (*types.SignUpResult, error) {
	resp, err := f.toolkit.SignupNewUser(ctx, &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       user.Email,
		Password:    user.Password,
		DisplayName: user.DisplayName,
		PhotoUrl:    user.PhotoURL,
	})
	if err != nil {
		return nil, mapFirebaseError(err)
	}

	// Firebase signs the new user in straight away.
	sess, err := f.session(ctx, resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}

	return &types.SignUpResult{Session: sess}, nil
}

// ConfirmUser is a no-op: Firebase accounts are usable without a code.
func (f *Firebase) ConfirmUser(context.Context, string, string) error {
	return nil
}

func (f *Firebase) ResetPassword(ctx context.Context, email string) error {
	_, err := f.toolkit.GetOobConfirmationCode(ctx, &identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	})
	if err != nil {
		return mapFirebaseError(err)
	}
	return nil
}

func (f *Firebase) LogOut(ctx context.Context, sess *types.Session) error {
	if sess == nil || sess.User.UID == "" {
		return nil
	}
	if err := f.admin.RevokeRefreshTokens(ctx, sess.User.UID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (f *Firebase) Verify(ctx context.Context, idToken string) (*types.User, time.Time, error) {
	token, err := f.admin.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user := &types.User{
		UID:         token.UID,
		Email:       claimString(token.Claims, "email"),
		DisplayName: claimString(token.Claims, "name"),
		PhotoURL:    claimString(token.Claims, "picture"),
	}

	var expires time.Time
	if token.Expires > 0 {
		expires = time.Unix(token.Expires, 0)
	}

	return user, expires, nil
}

func (f *Firebase) session(ctx context.Context, idToken, refreshToken string, expiresIn int64) (*types.Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: sign in returned no id token", ErrInvalidToken)
	}

	user, expires, err := f.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	if expires.IsZero() {
		if secs := expiresIn; secs > 0 {
			expires = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}

	f.logger.WithFields(logrus.Fields{
		"user_id": user.UID,
		"email":   user.Email,
	}).Debug("firebase session established")

	return &types.Session{
		User:         *user,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expires,
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}

// mapFirebaseError matches the error codes the Identity Toolkit puts at the
// start of its error message, e.g. "WEAK_PASSWORD : Password should be ...".
func mapFirebaseError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	code, _, _ := strings.Cut(apiErr.Message, " ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: %w", ErrUserExists, err)
	case "WEAK_PASSWORD":
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	return err
}
