package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"foodshare/internal/identity"
	"foodshare/pkg/types"
)

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r).User() != nil {
		s.logger.Info("user is already logged in, redirecting to home")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := &types.RegisterPageData{
		BasePageData:  types.BasePageData{Title: "Register"},
		GoogleEnabled: s.googleEnabled(),
	}

	err := s.renderTemplate(w, r, "page.register", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	displayName := strings.TrimSpace(r.FormValue("name"))
	photoURL := strings.TrimSpace(r.FormValue("photo_url"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	confirmPassword := r.FormValue("confirm_password")

	data := &types.RegisterPageData{
		BasePageData:  types.BasePageData{Title: "Create Account"},
		DisplayName:   displayName,
		PhotoURL:      photoURL,
		Email:         email,
		GoogleEnabled: s.googleEnabled(),
	}

	data.FieldErrors = validateRegisterInput(displayName, photoURL, email, password, confirmPassword)
	if len(data.FieldErrors) > 0 {
		s.logger.WithField("field_errors", data.FieldErrors).Info("validation errors during registration")

		data.Error = "Please fix the highlighted fields."
		err := s.renderTemplate(w, r, "page.register", data)
		if err != nil {
			s.logger.WithError(err).Error("failed to render register page with validation errors")
			s.internalServerError(w)
		}

		return
	}

	res, err := identityFrom(r).CreateUser(ctx, types.NewUser{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		PhotoURL:    photoURL,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to signup user")

		data.Error, data.FieldErrors = s.mapSignUpError(err)
		renderErr := s.renderTemplate(w, r, "page.register", data)
		if renderErr != nil {
			s.logger.WithError(renderErr).Error("failed to render register page with provider errors")
			s.internalServerError(w)
		}
		return
	}

	if res.ConfirmationRequired {
		v := url.Values{}
		v.Set("email", email)
		http.Redirect(w, r, fmt.Sprintf("/register/confirm?%s", v.Encode()), http.StatusSeeOther)
		return
	}

	s.redirectWithNotice(w, r, s.popRedirect(w, r, "/"), "Register successful!")
}

func (s *Service) handleGetRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))

	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm Your Account"},
		Email:        email,
	}

	err := s.renderTemplate(w, r, "page.register.confirm", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register confirm page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm Your Account"},
		Email:        email,
	}

	err := identityFrom(r).ConfirmUser(ctx, email, code)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		if errors.Is(err, identity.ErrCodeMismatch) {
			data.Error = "Invalid confirmation code. Please check the code and try again."
		} else {
			data.Error = "Unable to confirm account. Please try again."
		}

		err := s.renderTemplate(w, r, "page.register.confirm", data)
		if err != nil {
			s.logger.WithError(err).Error("failed to render register confirm page with error")
			s.internalServerError(w)
		}
		return
	}

	// Redirect to login after successful confirmation
	v := url.Values{}
	v.Set("confirmed", "true")
	v.Set("email", email)
	http.Redirect(w, r, "/login?"+v.Encode(), http.StatusSeeOther)
}

const (
	maxDisplayNameLen = 80
	minPasswordLen    = 6
)

var (
	hasUpperReg = regexp.MustCompile(`[A-Z]`)
	hasLowerReg = regexp.MustCompile(`[a-z]`)
)

func validateRegisterInput(displayName, photoURL, email, password, confirmPassword string) map[string]string {
	errs := map[string]string{}

	displayName = strings.TrimSpace(displayName)
	photoURL = strings.TrimSpace(photoURL)
	email = strings.TrimSpace(email)

	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		errs["name"] = "Name is too long."
	}

	if photoURL != "" {
		u, err := url.Parse(photoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, ".") {
			errs["photo_url"] = "Enter a valid URL."
		}
	}

	if email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Provide a valid email."
	}

	if password == "" {
		errs["password"] = "Password is required."
	} else if len(password) < minPasswordLen {
		errs["password"] = fmt.Sprintf("Password must be at least %d characters.", minPasswordLen)
	} else if !hasUpperReg.MatchString(password) || !hasLowerReg.MatchString(password) {
		errs["password"] = "Password must have uppercase and lowercase letters."
	}

	if password != confirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	return errs
}

func (s *Service) mapSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	switch {
	case errors.Is(err, identity.ErrWeakPassword):
		fieldErrs["password"] = "Password does not meet the account requirements."
		return "Please fix the highlighted fields.", fieldErrs
	case errors.Is(err, identity.ErrUserExists):
		fieldErrs["email"] = "An account with this email already exists."
		return "Try logging in instead.", fieldErrs
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled signup error")

	return "Register failed. Please try again.", fieldErrs
}
