package types

import (
	"strings"
	"time"
)

// User is the identity provider's view of the signed-in person.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Name returns the display name, or the local part of the email.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Session is a verified user plus the provider tokens that prove it.
type Session struct {
	User         User
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// NewUser is a sign-up request.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

// SignUpResult carries a session when the provider signs the user in
// directly, or ConfirmationRequired when it wants an emailed code first.
type SignUpResult struct {
	Session              *Session
	ConfirmationRequired bool
}
