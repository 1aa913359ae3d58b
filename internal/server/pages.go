package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"foodshare/internal/view"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

// loadable is a view with a page fetch.
type loadable interface {
	view.View
	Load(ctx context.Context) error
}

func (s *Service) deps(r *http.Request) view.Deps {
	return view.Deps{
		Service: s.foods,
		Session: identityFrom(r).Session(),
		Logger:  s.logger,
		Metrics: s.metrics,
	}
}

// lookupView returns the browser's mounted view with the given id.
func lookupView[T view.View](s *Service, r *http.Request, id string) (T, bool) {
	if id == "" {
		var zero T
		return zero, false
	}
	return view.Get[T](s.registry, browserFrom(r), id)
}

// mount registers v for the browser and runs its first fetch. It reports
// false when the inbound request went away before the fetch finished; a
// failed fetch still mounts so the page can offer a retry.
func (s *Service) mount(r *http.Request, v loadable) bool {
	s.registry.Put(browserFrom(r), v)

	err := v.Load(r.Context())
	if err == nil {
		return true
	}
	if r.Context().Err() != nil {
		s.registry.Remove(v.ID())
		return false
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"view":    string(v.Kind()),
		"view_id": v.ID(),
	}).Warn("view fetch failed")

	return true
}

// pagePath is where a mounted view is rendered.
func pagePath(v view.View) string {
	switch v := v.(type) {
	case *view.FeaturedFoods:
		return "/"
	case *view.AvailableFoods:
		if q := v.Query(); q != "" {
			return withQuery("/foods", "q", q)
		}
		return "/foods"
	case *view.FoodDetails:
		return foodPath(v.FoodID())
	case *view.MyFoods:
		return "/my-foods"
	case *view.MyRequests:
		return "/my-requests"
	}
	return "/"
}

func foodPath(id string) string {
	return "/food/" + url.PathEscape(id)
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	v, ok := lookupView[*view.FeaturedFoods](s, r, r.URL.Query().Get("view"))
	if !ok {
		v = view.NewFeaturedFoods(s.deps(r))
		if !s.mount(r, v) {
			return
		}
	}

	data := &types.HomePageData{
		BasePageData: types.BasePageData{Title: "Share food, not waste", Flashes: drainFlashes(v)},
		ViewState:    viewState(v.ID(), v.State(), v.Err()),
		Foods:        v.Foods(),
	}

	if err := s.renderTemplate(w, r, "page.home", data); err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
		return
	}
}

// handleFoods lists available foods. The search term comes from the path
// on /foods/search/:input, else from q. Searching within a mounted view
// filters the list it already holds.
func (s *Service) handleFoods(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if input := r.PathValue("input"); input != "" {
		if unescaped, err := url.PathUnescape(input); err == nil {
			input = unescaped
		}
		query = input
	}
	query = strings.TrimSpace(query)

	v, ok := lookupView[*view.AvailableFoods](s, r, r.URL.Query().Get("view"))
	if !ok {
		v = view.NewAvailableFoods(s.deps(r))
		if !s.mount(r, v) {
			return
		}
	}
	v.SetQuery(query)

	data := &types.FoodsPageData{
		BasePageData: types.BasePageData{Title: "Available Foods", Flashes: drainFlashes(v)},
		ViewState:    viewState(v.ID(), v.State(), v.Err()),
		Foods:        v.Foods(),
		Query:        query,
	}

	if err := s.renderTemplate(w, r, "page.foods", data); err != nil {
		s.logger.WithError(err).Error("failed to render foods page")
		s.internalServerError(w)
		return
	}
}

// handleLegacyFoods keeps old /available-foods links working.
func (s *Service) handleLegacyFoods(w http.ResponseWriter, r *http.Request) {
	target := "/foods"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func (s *Service) handleAbout(w http.ResponseWriter, r *http.Request) {
	data := &types.BasePageData{Title: "About"}

	if err := s.renderTemplate(w, r, "page.about", data); err != nil {
		s.logger.WithError(err).Error("failed to render about page")
		s.internalServerError(w)
		return
	}
}

// detailsView returns the mounted details view for foodID named by the
// form's view field, mounting and loading a fresh one when it expired.
func (s *Service) detailsView(r *http.Request, foodID, viewID string) (*view.FoodDetails, bool) {
	v, ok := lookupView[*view.FoodDetails](s, r, viewID)
	if ok && v.FoodID() == foodID {
		return v, true
	}

	v = view.NewFoodDetails(s.deps(r), foodID)
	if !s.mount(r, v) {
		return nil, false
	}
	return v, true
}

func (s *Service) handleFoodDetail(w http.ResponseWriter, r *http.Request) {
	foodID := r.PathValue("id")

	v, ok := s.detailsView(r, foodID, r.URL.Query().Get("view"))
	if !ok {
		return
	}

	s.renderFoodDetail(w, r, http.StatusOK, v, types.RequestInput{}, nil)
}

func (s *Service) renderFoodDetail(w http.ResponseWriter, r *http.Request, status int, v *view.FoodDetails, input types.RequestInput, fieldErrs map[string]string) {
	data := &types.FoodDetailPageData{
		BasePageData: types.BasePageData{Title: "Food Details", Flashes: drainFlashes(v)},
		ViewState:    viewState(v.ID(), v.State(), v.Err()),
		Food:         v.Food(),
		NotFound:     v.NotFound(),
		IsOwner:      v.IsOwner(),
		Requests:     v.Requests(),
		RequestForm:  input,
		FieldErrors:  fieldErrs,
	}

	if food := data.Food; food != nil {
		data.Title = food.Name
		user := identityFrom(r).User()
		data.CanRequest = user != nil && food.IsAvailable() && !food.OwnedBy(user)
	}

	if data.NotFound && status == http.StatusOK {
		status = http.StatusNotFound
	}

	if err := s.renderStatus(w, r, status, "page.food", data); err != nil {
		s.logger.WithError(err).Error("failed to render food detail page")
		s.internalServerError(w)
		return
	}
}

// handleRetryView re-runs the fetch of a mounted view that failed.
func (s *Service) handleRetryView(w http.ResponseWriter, r *http.Request) {
	viewID := r.PathValue("viewID")

	v, ok := lookupView[view.View](s, r, viewID)
	if !ok {
		// Expired; a plain GET mounts a fresh view.
		http.Redirect(w, r, refererPath(r, "/"), http.StatusSeeOther)
		return
	}

	if err := v.Retry(r.Context(), identityFrom(r).Session()); err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.WithError(err).WithField("view_id", viewID).Warn("view retry failed")
	}

	s.redirectToView(w, r, pagePath(v), v.ID())
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
