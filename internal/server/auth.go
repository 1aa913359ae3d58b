package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"foodshare/internal/identity"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

// googleEnabled reports whether the provider can build a Google sign-in URL.
func (s *Service) googleEnabled() bool {
	_, err := s.provider.GoogleSignInURL("probe")
	return err == nil
}

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r).User() != nil {
		s.logger.Info("user is already logged in, redirecting to available foods")
		http.Redirect(w, r, "/foods", http.StatusSeeOther)
		return
	}

	data := &types.LoginPageData{
		BasePageData:  types.BasePageData{Title: "Login"},
		Email:         r.URL.Query().Get("email"),
		GoogleEnabled: s.googleEnabled(),
	}
	if r.URL.Query().Get("confirmed") == "true" {
		data.Message = "Your account is confirmed. Please log in."
	}

	if err := s.renderTemplate(w, r, "page.login", data); err != nil {
		s.logger.WithError(err).Error("failed to render login page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &types.LoginPageData{
		BasePageData:  types.BasePageData{Title: "Login"},
		Email:         email,
		GoogleEnabled: s.googleEnabled(),
	}

	if _, err := mail.ParseAddress(email); err != nil || len(password) < 6 {
		data.Error = "Enter a valid email and a password of at least 6 characters."
		if err := s.renderTemplate(w, r, "page.login", data); err != nil {
			s.logger.WithError(err).Error("failed to render login page")
			s.internalServerError(w)
		}
		return
	}

	_, err := identityFrom(r).SignInEmail(ctx, email, password)
	if errors.Is(err, identity.ErrUserNotConfirmed) {
		v := url.Values{}
		v.Set("email", email)
		http.Redirect(w, r, "/register/confirm?"+v.Encode(), http.StatusSeeOther)
		return
	}
	if err != nil {
		s.logger.WithError(err).Info("failed to login user")

		data.Error = "Login failed. Please check your credentials and try again."
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			data.Error = "Unable to log in right now. Please try again."
		}
		if err := s.renderTemplate(w, r, "page.login", data); err != nil {
			s.logger.WithError(err).Error("failed to render login page")
			s.internalServerError(w)
		}
		return
	}

	// Check to see if this login attempt was the result of an unauthed redirect
	http.Redirect(w, r, s.popRedirect(w, r, "/"), http.StatusSeeOther)
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	if err := identityFrom(r).LogOut(ctx); err != nil {
		// The local session goes away regardless.
		s.logger.WithError(err).Warn("provider logout failed")
		s.clearSessionCookie(w)
		s.registry.RemoveOwner(browserFrom(r))
	}

	s.redirectWithNotice(w, r, "/", "You are logged out")
}

// handleGoogleAuth starts a Google sign-in. The state is kept in a short
// lived cookie and checked on the callback.
func (s *Service) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	state := utils.NanoID()

	target, err := identityFrom(r).GoogleSignInURL(state)
	if err != nil {
		s.logger.WithError(err).Warn("google sign-in unavailable")
		s.redirectWithError(w, r, "/login", "Google login is not available.")
		return
	}

	s.setCookie(w, cookieOAuthStateName, state, 10*time.Minute)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Service) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	q := r.URL.Query()

	cookie, err := r.Cookie(cookieOAuthStateName)
	s.clearCookie(w, cookieOAuthStateName)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		s.logger.Warn("google callback state mismatch")
		s.redirectWithError(w, r, "/login", "Google login failed. Please try again.")
		return
	}

	if msg := q.Get("error"); msg != "" {
		s.logger.WithField("error", msg).Info("google sign-in was not completed")
		s.redirectWithError(w, r, "/login", "Google login failed. Please try again.")
		return
	}

	if _, err := identityFrom(r).SignInWithGoogle(ctx, q.Get("code")); err != nil {
		s.logger.WithError(err).Error("failed to complete google sign-in")
		s.redirectWithError(w, r, "/login", "Google login failed. Please try again.")
		return
	}

	http.Redirect(w, r, s.popRedirect(w, r, "/"), http.StatusSeeOther)
}

func (s *Service) handleGetResetPassword(w http.ResponseWriter, r *http.Request) {
	data := &types.ResetPasswordPageData{
		BasePageData: types.BasePageData{Title: "Reset Password"},
		Email:        r.URL.Query().Get("email"),
	}

	if err := s.renderTemplate(w, r, "page.reset-password", data); err != nil {
		s.logger.WithError(err).Error("failed to render reset password page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostResetPassword(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	email := strings.TrimSpace(r.FormValue("email"))

	data := &types.ResetPasswordPageData{
		BasePageData: types.BasePageData{Title: "Reset Password"},
		Email:        email,
	}

	if _, err := mail.ParseAddress(email); err != nil {
		data.Error = "Enter a valid email address."
	} else if err := identityFrom(r).ResetPassword(ctx, email); err != nil {
		s.logger.WithError(err).Error("failed to send password reset")
		data.Error = "Unable to send a reset email right now. Please try again."
	} else {
		data.Message = "Check your inbox for a link to reset your password."
	}

	if err := s.renderTemplate(w, r, "page.reset-password", data); err != nil {
		s.logger.WithError(err).Error("failed to render reset password page")
		s.internalServerError(w)
		return
	}
}
