package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"foodshare/internal/identity"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyIdentity contextKey = "identity"
	contextKeyBrowser  contextKey = "browser_id"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.metrics.ObservePage(r.Method, rw.statusCode, started)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// LoadIdentity resolves who is signed in from the session cookie and puts a
// per-request identity.Context on the request. Auth changes made through
// that Context during the request are written back to the cookie, and the
// browser's mounted views are dropped since they were fetched as someone
// else.
func (s *Service) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		browser := s.browserID(w, r)

		idc := identity.NewContext(s.provider)
		stored := s.readSessionCookie(r)

		err := idc.Restore(r.Context(), stored)
		switch {
		case errors.Is(err, identity.ErrInvalidToken):
			s.logger.WithError(err).Debug("dropping rejected session cookie")
			s.clearSessionCookie(w)
		case err != nil:
			// Keep the cookie; the provider may just be unreachable.
			s.logger.WithError(err).Warn("failed to verify session")
		case stored != nil && idc.Session() == nil:
			s.clearSessionCookie(w)
		}

		idc.Subscribe(func(_ *types.User) {
			s.registry.RemoveOwner(browser)

			sess := idc.Session()
			if sess == nil {
				s.clearSessionCookie(w)
				return
			}
			if err := s.setSessionCookie(w, sess); err != nil {
				s.logger.WithError(err).Error("failed to encode session cookie")
			}
		})

		if user := idc.User(); user != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id": user.UID,
				"email":   user.Email,
			}).Debug("authenticated user")
		}

		ctx := context.WithValue(r.Context(), contextKeyIdentity, idc)
		ctx = context.WithValue(ctx, contextKeyBrowser, browser)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth sends signed-out visitors to the login page, remembering
// where they were headed.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).User() != nil {
			next.ServeHTTP(w, r)
			return
		}

		s.logger.WithField("path", r.URL.Path).Debug("unauthenticated request to protected route")

		path := r.URL.RequestURI()
		if r.Method != http.MethodGet {
			path = refererPath(r, "/")
		}
		s.setRedirectCookie(w, path, time.Minute*5)

		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			// Build redirect URL
			newPath := strings.TrimSuffix(path, "/")
			newURL := *r.URL
			newURL.Path = newPath
			newURL.RawPath = ""

			// Preserve query string
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identityFrom returns the request's identity.Context. Outside LoadIdentity
// it is a signed-out Context.
func identityFrom(r *http.Request) *identity.Context {
	if idc, ok := r.Context().Value(contextKeyIdentity).(*identity.Context); ok {
		return idc
	}
	idc := identity.NewContext(nil)
	_ = idc.Restore(r.Context(), nil)
	return idc
}

func browserFrom(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyBrowser).(string)
	return id
}
