package identity

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"foodshare/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	initiateAuth  func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error)
	signUp        func(*cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error)
	confirmSignUp func(*cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	globalSignOut func(*cognitoidentityprovider.GlobalSignOutInput) (*cognitoidentityprovider.GlobalSignOutOutput, error)
	forgot        []*cognitoidentityprovider.ForgotPasswordInput
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	return f.initiateAuth(in)
}

func (f *fakeCognito) SignUp(_ context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return f.signUp(in)
}

func (f *fakeCognito) ConfirmSignUp(_ context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return f.confirmSignUp(in)
}

func (f *fakeCognito) ForgotPassword(_ context.Context, in *cognitoidentityprovider.ForgotPasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	f.forgot = append(f.forgot, in)
	return &cognitoidentityprovider.ForgotPasswordOutput{}, nil
}

func (f *fakeCognito) GlobalSignOut(_ context.Context, in *cognitoidentityprovider.GlobalSignOutInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	return f.globalSignOut(in)
}

type staticVerifier struct {
	user    *types.User
	expires time.Time
	err     error
}

func (v staticVerifier) Verify(context.Context, string) (*types.User, time.Time, error) {
	if v.err != nil {
		return nil, time.Time{}, v.err
	}
	u := *v.user
	return &u, v.expires, nil
}

func newTestCognito(api CognitoAPI, config CognitoConfig) *Cognito {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	verifier := staticVerifier{
		user:    &types.User{UID: "sub-1", Email: "dana@example.com", DisplayName: "Dana"},
		expires: time.Now().Add(time.Hour),
	}

	if config.ClientID == "" {
		config.ClientID = "client-1"
	}
	return NewCognito(api, verifier, config, logger)
}

func authResult() *cognitoidentityprovider.InitiateAuthOutput {
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{
			IdToken:      aws.String("id-token"),
			AccessToken:  aws.String("access-token"),
			RefreshToken: aws.String("refresh-token"),
			ExpiresIn:    3600,
		},
	}
}

func TestCognito_SignInEmail(t *testing.T) {
	api := &fakeCognito{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			assert.Equal(t, ctypes.AuthFlowTypeUserPasswordAuth, in.AuthFlow)
			assert.Equal(t, "client-1", aws.ToString(in.ClientId))
			assert.Equal(t, "dana@example.com", in.AuthParameters["USERNAME"])
			assert.Equal(t, "pw", in.AuthParameters["PASSWORD"])
			assert.NotEmpty(t, in.AuthParameters["SECRET_HASH"])
			return authResult(), nil
		},
	}

	c := newTestCognito(api, CognitoConfig{ClientSecret: "shh"})
	sess, err := c.SignInEmail(context.Background(), "dana@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, "sub-1", sess.User.UID)
	assert.Equal(t, "id-token", sess.IDToken)
	assert.Equal(t, "access-token", sess.AccessToken)
	assert.Equal(t, "refresh-token", sess.RefreshToken)
	assert.False(t, sess.Expired(time.Now()))
}

func TestCognito_SignInErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		out  *cognitoidentityprovider.InitiateAuthOutput
		want error
	}{
		{name: "bad password", err: &ctypes.NotAuthorizedException{}, want: ErrInvalidCredentials},
		{name: "unknown user", err: &ctypes.UserNotFoundException{}, want: ErrInvalidCredentials},
		{name: "not confirmed", err: &ctypes.UserNotConfirmedException{}, want: ErrUserNotConfirmed},
		{name: "challenge", out: &cognitoidentityprovider.InitiateAuthOutput{ChallengeName: ctypes.ChallengeNameTypeNewPasswordRequired}, want: ErrChallenge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCognito{
				initiateAuth: func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
					return tt.out, tt.err
				},
			}

			_, err := newTestCognito(api, CognitoConfig{}).SignInEmail(context.Background(), "a@b.c", "pw")
			assert.ErrorIs(t, err, tt.want)

			if tt.err != nil {
				assert.True(t, errors.As(err, new(interface{ ErrorCode() string })), "cognito error stays reachable")
			}
		})
	}
}

func TestCognito_CreateUser(t *testing.T) {
	t.Run("needs confirmation", func(t *testing.T) {
		api := &fakeCognito{
			signUp: func(in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
				assert.Equal(t, "new@example.com", aws.ToString(in.Username))
				assert.Nil(t, in.SecretHash)

				attrs := map[string]string{}
				for _, a := range in.UserAttributes {
					attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
				}
				assert.Equal(t, map[string]string{
					"email":   "new@example.com",
					"name":    "New Person",
					"picture": "https://img.example.com/p.png",
				}, attrs)

				return &cognitoidentityprovider.SignUpOutput{UserConfirmed: false}, nil
			},
		}

		res, err := newTestCognito(api, CognitoConfig{}).CreateUser(context.Background(), types.NewUser{
			Email:       "new@example.com",
			Password:    "pw",
			DisplayName: "New Person",
			PhotoURL:    "https://img.example.com/p.png",
		})
		require.NoError(t, err)
		assert.True(t, res.ConfirmationRequired)
		assert.Nil(t, res.Session)
	})

	t.Run("auto confirmed signs in", func(t *testing.T) {
		api := &fakeCognito{
			signUp: func(*cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
				return &cognitoidentityprovider.SignUpOutput{UserConfirmed: true}, nil
			},
			initiateAuth: func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
				return authResult(), nil
			},
		}

		res, err := newTestCognito(api, CognitoConfig{}).CreateUser(context.Background(), types.NewUser{Email: "new@example.com", Password: "pw"})
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.Equal(t, "id-token", res.Session.IDToken)
	})

	t.Run("existing user", func(t *testing.T) {
		api := &fakeCognito{
			signUp: func(*cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
				return nil, &ctypes.UsernameExistsException{}
			},
		}

		_, err := newTestCognito(api, CognitoConfig{}).CreateUser(context.Background(), types.NewUser{Email: "dana@example.com"})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestCognito_ConfirmUser(t *testing.T) {
	api := &fakeCognito{
		confirmSignUp: func(in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
			if aws.ToString(in.ConfirmationCode) != "123456" {
				return nil, &ctypes.CodeMismatchException{}
			}
			return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
		},
	}
	c := newTestCognito(api, CognitoConfig{})

	assert.NoError(t, c.ConfirmUser(context.Background(), "a@b.c", "123456"))
	assert.ErrorIs(t, c.ConfirmUser(context.Background(), "a@b.c", "000000"), ErrCodeMismatch)
}

func TestCognito_LogOut(t *testing.T) {
	var signedOut []string
	api := &fakeCognito{
		globalSignOut: func(in *cognitoidentityprovider.GlobalSignOutInput) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
			token := aws.ToString(in.AccessToken)
			if token == "revoked" {
				return nil, &ctypes.NotAuthorizedException{}
			}
			signedOut = append(signedOut, token)
			return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
		},
	}
	c := newTestCognito(api, CognitoConfig{})

	require.NoError(t, c.LogOut(context.Background(), nil))
	require.NoError(t, c.LogOut(context.Background(), &types.Session{AccessToken: "revoked"}))
	require.NoError(t, c.LogOut(context.Background(), &types.Session{AccessToken: "access-token"}))
	assert.Equal(t, []string{"access-token"}, signedOut)
}

func TestCognito_GoogleSignInURL(t *testing.T) {
	_, err := newTestCognito(&fakeCognito{}, CognitoConfig{}).GoogleSignInURL("state")
	assert.ErrorIs(t, err, ErrGoogleDisabled)

	c := newTestCognito(&fakeCognito{}, CognitoConfig{
		Domain:      "https://foodshare.auth.us-east-1.amazoncognito.com/",
		RedirectURL: "https://foodshare.example.com/auth/callback",
	})
	raw, err := c.GoogleSignInURL("abc")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", u.Path)
	assert.Equal(t, "Google", u.Query().Get("identity_provider"))
	assert.Equal(t, "abc", u.Query().Get("state"))
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "https://foodshare.example.com/auth/callback", u.Query().Get("redirect_uri"))
}

func TestUserFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	token, err := jwt.NewBuilder().
		Subject("sub-9").
		Expiration(exp).
		Claim("email", "kim@example.com").
		Claim("given_name", "Kim").
		Claim("family_name", "Lee").
		Claim("picture", "https://img.example.com/kim.png").
		Build()
	require.NoError(t, err)

	user, expires, err := userFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, &types.User{
		UID:         "sub-9",
		Email:       "kim@example.com",
		DisplayName: "Kim Lee",
		PhotoURL:    "https://img.example.com/kim.png",
	}, user)
	assert.True(t, exp.Equal(expires))

	noSub, err := jwt.NewBuilder().Claim("email", "x@example.com").Build()
	require.NoError(t, err)
	_, _, err = userFromToken(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
