package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodshare/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu sync.Mutex

	users     map[string]*types.User // by id token
	passwords map[string]string      // email -> password
	logOutErr error
	loggedOut []*types.Session
	resets    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users: map[string]*types.User{
			"token-dana": {UID: "u-dana", Email: "dana@example.com", DisplayName: "Dana"},
		},
		passwords: map[string]string{"dana@example.com": "hunter2hunter2"},
	}
}

func (f *fakeProvider) SignInEmail(_ context.Context, email, password string) (*types.Session, error) {
	if f.passwords[email] != password {
		return nil, ErrInvalidCredentials
	}
	return &types.Session{User: *f.users["token-dana"], IDToken: "token-dana"}, nil
}

func (f *fakeProvider) GoogleSignInURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + state, nil
}

func (f *fakeProvider) SignInWithGoogle(_ context.Context, code string) (*types.Session, error) {
	if code != "good-code" {
		return nil, ErrInvalidToken
	}
	return &types.Session{User: types.User{UID: "u-g", Email: "g@example.com"}, IDToken: "token-g"}, nil
}

func (f *fakeProvider) CreateUser(_ context.Context, user types.NewUser) (*types.SignUpResult, error) {
	if _, ok := f.passwords[user.Email]; ok {
		return nil, ErrUserExists
	}
	if user.Email == "confirm@example.com" {
		return &types.SignUpResult{ConfirmationRequired: true}, nil
	}
	return &types.SignUpResult{Session: &types.Session{
		User:    types.User{UID: "u-new", Email: user.Email, DisplayName: user.DisplayName, PhotoURL: user.PhotoURL},
		IDToken: "token-new",
	}}, nil
}

func (f *fakeProvider) ConfirmUser(context.Context, string, string) error { return nil }

func (f *fakeProvider) ResetPassword(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeProvider) LogOut(_ context.Context, sess *types.Session) error {
	if f.logOutErr != nil {
		return f.logOutErr
	}
	f.loggedOut = append(f.loggedOut, sess)
	return nil
}

func (f *fakeProvider) Verify(_ context.Context, idToken string) (*types.User, time.Time, error) {
	user, ok := f.users[idToken]
	if !ok {
		return nil, time.Time{}, ErrInvalidToken
	}
	u := *user
	return &u, time.Now().Add(time.Hour), nil
}

func TestContext_LoadingUntilRestore(t *testing.T) {
	ic := NewContext(newFakeProvider())

	assert.True(t, ic.Loading())
	assert.Nil(t, ic.User())
	assert.Nil(t, ic.Session())

	var seen []*types.User
	ic.Subscribe(func(u *types.User) { seen = append(seen, u) })

	require.NoError(t, ic.Restore(context.Background(), &types.Session{IDToken: "token-dana"}))

	assert.False(t, ic.Loading())
	require.NotNil(t, ic.User())
	assert.Equal(t, "dana@example.com", ic.User().Email)
	assert.Equal(t, "token-dana", ic.Session().IDToken)
	assert.False(t, ic.Session().ExpiresAt.IsZero())
	require.Len(t, seen, 1)
	assert.Equal(t, "u-dana", seen[0].UID)

	// Loading never returns to true.
	require.NoError(t, ic.LogOut(context.Background()))
	assert.False(t, ic.Loading())
	assert.Nil(t, ic.User())
}

func TestContext_RestoreSignedOut(t *testing.T) {
	tests := []struct {
		name    string
		stored  *types.Session
		wantErr bool
	}{
		{name: "no session", stored: nil},
		{name: "no token", stored: &types.Session{}},
		{name: "expired", stored: &types.Session{IDToken: "token-dana", ExpiresAt: time.Now().Add(-time.Minute)}},
		{name: "rejected token", stored: &types.Session{IDToken: "forged"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := NewContext(newFakeProvider())

			var calls int
			ic.Subscribe(func(u *types.User) {
				calls++
				assert.Nil(t, u)
			})

			err := ic.Restore(context.Background(), tt.stored)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
			} else {
				assert.NoError(t, err)
			}

			assert.False(t, ic.Loading())
			assert.Nil(t, ic.User())
			assert.Equal(t, 1, calls, "first resolution notifies")
		})
	}
}

func TestContext_SignInNotifies(t *testing.T) {
	ic := NewContext(newFakeProvider())
	require.NoError(t, ic.Restore(context.Background(), nil))

	var seen []*types.User
	unsubscribe := ic.Subscribe(func(u *types.User) { seen = append(seen, u) })

	_, err := ic.SignInEmail(context.Background(), "dana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, ic.User())
	assert.Empty(t, seen, "failed sign in does not change state")

	sess, err := ic.SignInEmail(context.Background(), "dana@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "token-dana", sess.IDToken)
	assert.Equal(t, "Dana", ic.User().DisplayName)
	require.Len(t, seen, 1)

	unsubscribe()
	unsubscribe()

	_, err = ic.SignInWithGoogle(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", ic.User().Email)
	assert.Len(t, seen, 1, "unsubscribed listener is not called")
}

func TestContext_CreateUser(t *testing.T) {
	t.Run("signed in directly", func(t *testing.T) {
		ic := NewContext(newFakeProvider())
		require.NoError(t, ic.Restore(context.Background(), nil))

		res, err := ic.CreateUser(context.Background(), types.NewUser{
			Email:       "new@example.com",
			Password:    "pw",
			DisplayName: "New Person",
			PhotoURL:    "https://img.example.com/new.png",
		})
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.False(t, res.ConfirmationRequired)
		assert.Equal(t, "New Person", ic.User().DisplayName)
		assert.Equal(t, "https://img.example.com/new.png", ic.User().PhotoURL)
	})

	t.Run("confirmation required", func(t *testing.T) {
		ic := NewContext(newFakeProvider())
		require.NoError(t, ic.Restore(context.Background(), nil))

		res, err := ic.CreateUser(context.Background(), types.NewUser{Email: "confirm@example.com", Password: "pw"})
		require.NoError(t, err)
		assert.True(t, res.ConfirmationRequired)
		assert.Nil(t, ic.User())
	})

	t.Run("provider error untranslated", func(t *testing.T) {
		ic := NewContext(newFakeProvider())
		_, err := ic.CreateUser(context.Background(), types.NewUser{Email: "dana@example.com"})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestContext_LogOut(t *testing.T) {
	provider := newFakeProvider()
	ic := NewContext(provider)
	require.NoError(t, ic.Restore(context.Background(), &types.Session{IDToken: "token-dana"}))

	provider.logOutErr = errors.New("network down")
	assert.EqualError(t, ic.LogOut(context.Background()), "network down")
	assert.NotNil(t, ic.User(), "failed sign out keeps the user")

	provider.logOutErr = nil
	require.NoError(t, ic.LogOut(context.Background()))
	assert.Nil(t, ic.User())
	require.Len(t, provider.loggedOut, 1)
	assert.Equal(t, "token-dana", provider.loggedOut[0].IDToken)
}

func TestContext_ResetPassword(t *testing.T) {
	provider := newFakeProvider()
	ic := NewContext(provider)

	require.NoError(t, ic.ResetPassword(context.Background(), "dana@example.com"))
	assert.Equal(t, []string{"dana@example.com"}, provider.resets)
	assert.True(t, ic.Loading(), "password reset does not resolve auth state")
}
