package server

import (
	"errors"
	"net/http"

	"foodshare/internal/view"
	"foodshare/pkg/types"
)

// guardNotice queues a message for mutation errors raised before any
// network call. Failures of the remote call itself are queued by the view.
func (s *Service) guardNotice(v view.View, err error) {
	switch {
	case err == nil, errors.Is(err, view.ErrNotOwner):
	case errors.Is(err, view.ErrInFlight):
		v.Notifications().Push(view.LevelInfo, "Still working on your last change")
	case errors.Is(err, view.ErrNotAvailable):
		v.Notifications().Push(view.LevelError, "This food is no longer available")
	case errors.Is(err, types.ErrFoodNotFound):
		v.Notifications().Push(view.LevelError, "Food not found")
	case errors.Is(err, view.ErrDecided):
		v.Notifications().Push(view.LevelError, "This request was already answered")
	case errors.Is(err, types.ErrRequestNotFound):
		v.Notifications().Push(view.LevelError, "Request not found")
	case errors.Is(err, types.ErrInvalidStatus):
		v.Notifications().Push(view.LevelError, "Unknown status")
	default:
		s.logger.WithError(err).WithField("view_id", v.ID()).Error("mutation failed")
	}
}

type requestStatusForm struct {
	Status string `form:"status"`
	View   string `form:"view"`
}

func (s *Service) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	foodID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, foodPath(foodID), "Invalid form submission")
		return
	}

	var input types.RequestInput
	if err := decoder.Decode(&input, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode request form")
		s.redirectWithError(w, r, foodPath(foodID), "Invalid form submission")
		return
	}

	v, ok := s.detailsView(r, foodID, r.FormValue("view"))
	if !ok {
		return
	}

	_, err := v.SubmitRequest(ctx, identityFrom(r).Session(), input)

	var verr *view.ValidationError
	if errors.As(err, &verr) {
		s.renderFoodDetail(w, r, http.StatusUnprocessableEntity, v, input, verr.Fields)
		return
	}
	if errors.Is(err, types.ErrSignInRequired) {
		s.redirectToLogin(w, r)
		return
	}
	s.guardNotice(v, err)

	s.redirectToView(w, r, foodPath(foodID), v.ID())
}

func (s *Service) handleChangeRequestStatus(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	foodID := r.PathValue("id")
	requestID := r.PathValue("requestID")

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, foodPath(foodID), "Invalid form submission")
		return
	}

	var form requestStatusForm
	if err := decoder.Decode(&form, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode request status form")
		s.redirectWithError(w, r, foodPath(foodID), "Invalid form submission")
		return
	}

	v, ok := s.detailsView(r, foodID, form.View)
	if !ok {
		return
	}

	err := v.ChangeRequestStatus(ctx, identityFrom(r).Session(), requestID, types.RequestStatus(form.Status))
	s.guardNotice(v, err)

	s.redirectToView(w, r, foodPath(foodID), v.ID())
}

func (s *Service) handleFoodDonated(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	foodID := r.PathValue("id")

	v, ok := s.detailsView(r, foodID, r.FormValue("view"))
	if !ok {
		return
	}

	err := v.MarkDonated(ctx, identityFrom(r).Session())
	s.guardNotice(v, err)

	s.redirectToView(w, r, foodPath(foodID), v.ID())
}

func (s *Service) myFoodsView(r *http.Request, viewID string) (*view.MyFoods, bool) {
	if v, ok := lookupView[*view.MyFoods](s, r, viewID); ok {
		return v, true
	}

	v := view.NewMyFoods(s.deps(r))
	if !s.mount(r, v) {
		return nil, false
	}
	return v, true
}

func (s *Service) handleMyFoods(w http.ResponseWriter, r *http.Request) {
	v, ok := s.myFoodsView(r, r.URL.Query().Get("view"))
	if !ok {
		return
	}

	data := &types.MyFoodsPageData{
		BasePageData: types.BasePageData{Title: "My Foods", Flashes: drainFlashes(v)},
		ViewState:    viewState(v.ID(), v.State(), v.Err()),
		Foods:        v.Foods(),
	}

	if err := s.renderTemplate(w, r, "page.my-foods", data); err != nil {
		s.logger.WithError(err).Error("failed to render my foods page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleDeleteMyFood(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	v, ok := s.myFoodsView(r, r.FormValue("view"))
	if !ok {
		return
	}

	err := v.Delete(ctx, identityFrom(r).Session(), r.PathValue("id"))
	s.guardNotice(v, err)

	s.redirectToView(w, r, "/my-foods", v.ID())
}

func (s *Service) handleMyFoodDonated(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	v, ok := s.myFoodsView(r, r.FormValue("view"))
	if !ok {
		return
	}

	err := v.MarkDonated(ctx, identityFrom(r).Session(), r.PathValue("id"))
	s.guardNotice(v, err)

	s.redirectToView(w, r, "/my-foods", v.ID())
}

func (s *Service) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	v, ok := lookupView[*view.MyRequests](s, r, r.URL.Query().Get("view"))
	if !ok {
		v = view.NewMyRequests(s.deps(r))
		if !s.mount(r, v) {
			return
		}
	}

	data := &types.MyRequestsPageData{
		BasePageData: types.BasePageData{Title: "My Requests", Flashes: drainFlashes(v)},
		ViewState:    viewState(v.ID(), v.State(), v.Err()),
		Requests:     v.Requests(),
	}

	if err := s.renderTemplate(w, r, "page.my-requests", data); err != nil {
		s.logger.WithError(err).Error("failed to render my requests page")
		s.internalServerError(w)
		return
	}
}
