package server

import (
	"net/http"
	"time"

	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

const (
	cookieSessionName    = "fs_session"
	cookieBrowserName    = "fs_browser"
	cookieRedirectName   = "fs_redirect"
	cookieOAuthStateName = "fs_oauth_state"
)

// storedSession is what the session cookie carries. The user is not stored;
// it is re-read from the verified ID token on every request.
type storedSession struct {
	IDToken     string
	AccessToken string
	ExpiresAt   int64
}

func (s *Service) setCookie(w http.ResponseWriter, name, value string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func (s *Service) setSessionCookie(w http.ResponseWriter, sess *types.Session) error {
	stored := storedSession{
		IDToken:     sess.IDToken,
		AccessToken: sess.AccessToken,
	}
	if !sess.ExpiresAt.IsZero() {
		stored.ExpiresAt = sess.ExpiresAt.Unix()
	}

	encoded, err := s.cookie.Encode(cookieSessionName, stored)
	if err != nil {
		return err
	}

	s.setCookie(w, cookieSessionName, encoded, time.Duration(s.config.SessionMaxAgeSec)*time.Second)
	return nil
}

func (s *Service) clearSessionCookie(w http.ResponseWriter) {
	s.clearCookie(w, cookieSessionName)
}

// readSessionCookie returns nil when there is no usable session cookie.
func (s *Service) readSessionCookie(r *http.Request) *types.Session {
	cookie, err := r.Cookie(cookieSessionName)
	if err != nil {
		return nil
	}

	var stored storedSession
	if err := s.cookie.Decode(cookieSessionName, cookie.Value, &stored); err != nil {
		s.logger.WithError(err).Debug("failed to decode session cookie")
		return nil
	}

	sess := &types.Session{
		IDToken:     stored.IDToken,
		AccessToken: stored.AccessToken,
	}
	if stored.ExpiresAt > 0 {
		sess.ExpiresAt = time.Unix(stored.ExpiresAt, 0)
	}
	return sess
}

// browserID returns the id that owns this browser's mounted views, issuing
// a new one when the cookie is missing or was tampered with.
func (s *Service) browserID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(cookieBrowserName); err == nil {
		var id string
		if err := s.cookie.Decode(cookieBrowserName, cookie.Value, &id); err == nil && id != "" {
			return id
		}
	}

	id := utils.NanoID()
	encoded, err := s.cookie.Encode(cookieBrowserName, id)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode browser cookie")
		return id
	}
	s.setCookie(w, cookieBrowserName, encoded, 0)

	return id
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	s.setCookie(w, cookieRedirectName, path, age)
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	s.clearCookie(w, cookieRedirectName)
}

// popRedirect returns the path stored before an auth redirect, or fallback.
// Only local paths are honored.
func (s *Service) popRedirect(w http.ResponseWriter, r *http.Request, fallback string) string {
	cookie, err := r.Cookie(cookieRedirectName)
	if err != nil {
		return fallback
	}
	s.clearRedirectCookie(w)

	path := cookie.Value
	if !localPath(path) {
		return fallback
	}
	return path
}

func localPath(path string) bool {
	return len(path) > 0 && path[0] == '/' && (len(path) == 1 || (path[1] != '/' && path[1] != '\\'))
}
