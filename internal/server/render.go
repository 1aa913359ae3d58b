package server

import (
	"bytes"
	"net/http"

	"foodshare/internal/foodapi"
	"foodshare/internal/view"
	"foodshare/pkg/types"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	return s.renderStatus(w, r, http.StatusOK, templateName, data)
}

// renderStatus renders into a buffer first so a template error never leaves
// a half-written page behind.
func (s *Service) renderStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) error {
	if setter, ok := data.(types.NavbarDataSetter); ok {
		setter.SetNavbarData(navbarData(identityFrom(r).User()))
	}

	if adder, ok := data.(types.FlashAdder); ok {
		q := r.URL.Query()
		if notice := q.Get("notice"); notice != "" {
			adder.AddFlashes(types.Flash{Level: string(view.LevelSuccess), Message: notice})
		}
		if msg := q.Get("error"); msg != "" {
			adder.AddFlashes(types.Flash{Level: string(view.LevelError), Message: msg})
		}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func navbarData(user *types.User) types.NavbarData {
	if user == nil {
		return types.NavbarData{}
	}
	return types.NavbarData{
		IsAuthenticated: true,
		UserID:          user.UID,
		UserEmail:       user.Email,
		UserName:        user.Name(),
		AvatarURL:       user.PhotoURL,
	}
}

// drainFlashes moves the view's queued notifications onto the page.
func drainFlashes(v view.View) []types.Flash {
	notes := v.Notifications().Drain()
	flashes := make([]types.Flash, 0, len(notes))
	for _, n := range notes {
		flashes = append(flashes, types.Flash{Level: string(n.Level), Message: n.Message})
	}
	return flashes
}

func viewState(id string, state view.State, err error) types.ViewState {
	vs := types.ViewState{
		ViewID:  id,
		Loading: state == view.StateIdle || state == view.StateLoading,
	}
	if state == view.StateFailed {
		vs.Failed = true
		vs.Error = foodapi.Message(err, "Something went wrong while loading. Please try again.")
	}
	return vs
}
