// Package identity signs users in through an external provider and exposes
// the signed-in user to the rest of the app as a per-request Context.
package identity

import (
	"context"
	"errors"
	"time"

	"foodshare/pkg/types"
)

// Provider errors wrap the provider's own error, so callers can match either
// the sentinel or the provider-specific type.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotConfirmed   = errors.New("account is not confirmed")
	ErrUserExists         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password does not meet the requirements")
	ErrCodeMismatch       = errors.New("invalid confirmation code")
	ErrInvalidToken       = errors.New("invalid identity token")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")
	ErrChallenge          = errors.New("additional sign-in challenge required")
)

// Provider is an external authentication service.
type Provider interface {
	SignInEmail(ctx context.Context, email, password string) (*types.Session, error)

	// GoogleSignInURL returns where to send the browser to start a Google
	// sign-in; the provider redirects back with a code and the given state.
	GoogleSignInURL(state string) (string, error)
	SignInWithGoogle(ctx context.Context, code string) (*types.Session, error)

	CreateUser(ctx context.Context, user types.NewUser) (*types.SignUpResult, error)
	ConfirmUser(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email string) error
	LogOut(ctx context.Context, sess *types.Session) error

	// Verify checks an ID token and returns the user it names and when it
	// expires.
	Verify(ctx context.Context, idToken string) (*types.User, time.Time, error)
}
