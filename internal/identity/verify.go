package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodshare/pkg/types"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenVerifier turns a signed ID token into the user it names.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*types.User, time.Time, error)
}

// JWKSVerifier checks ID tokens against a JSON Web Key Set that is fetched
// and refreshed in the background.
type JWKSVerifier struct {
	cache    *jwk.Cache
	jwksURL  string
	issuer   string
	audience string
}

// NewJWKSVerifier registers <issuer>/.well-known/jwks.json with a new cache.
// The cache lives as long as ctx.
func NewJWKSVerifier(ctx context.Context, issuer, audience string) (*JWKSVerifier, error) {
	issuer = strings.TrimRight(issuer, "/")

	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", issuer)
	if err := cache.Register(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to register jwks with cache: %w", err)
	}

	return &JWKSVerifier{
		cache:    cache,
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
	}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, idToken string) (*types.User, time.Time, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(idToken), opts...)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return userFromToken(token)
}

func userFromToken(token jwt.Token) (*types.User, time.Time, error) {
	sub, ok := token.Subject()
	if !ok || sub == "" {
		return nil, time.Time{}, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}

	user := &types.User{UID: sub}

	// Optional claims; a missing one leaves the field empty.
	_ = token.Get("email", &user.Email)
	_ = token.Get("picture", &user.PhotoURL)
	if err := token.Get("name", &user.DisplayName); err != nil {
		var given, family string
		_ = token.Get("given_name", &given)
		_ = token.Get("family_name", &family)
		user.DisplayName = strings.TrimSpace(given + " " + family)
	}

	expires, _ := token.Expiration()

	return user, expires, nil
}
