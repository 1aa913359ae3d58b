package server

import (
	"net/http"
	"net/url"
	"strings"
)

func (s *Service) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, withQuery(path, "notice", notice), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withQuery(path, "error", msg), http.StatusSeeOther)
}

// redirectToView sends the browser back to the page of a mounted view so
// the GET re-renders it as patched.
func (s *Service) redirectToView(w http.ResponseWriter, r *http.Request, path, viewID string) {
	http.Redirect(w, r, withQuery(path, "view", viewID), http.StatusSeeOther)
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// refererPath returns the local path of the Referer header, or fallback.
func refererPath(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return fallback
	}
	if ref.Host != "" && !strings.EqualFold(ref.Host, r.Host) {
		return fallback
	}
	return ref.RequestURI()
}
