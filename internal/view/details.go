package view

import (
	"context"
	"errors"
	"strings"

	"foodshare/pkg/types"
)

type detail struct {
	food     *types.Food
	requests []*types.Request
}

// FoodDetails shows one food. Its requests are loaded only for the food's
// donator.
type FoodDetails struct {
	*base
	foodID string
	detail *Loader[detail]
}

func NewFoodDetails(d Deps, foodID string) *FoodDetails {
	v := &FoodDetails{base: newBase(KindFoodDetails, d), foodID: foodID}
	v.detail = NewLoader(v.scope, v.fetch)
	return v
}

func (v *FoodDetails) fetch(ctx context.Context) (detail, error) {
	food, err := v.svc.GetFood(ctx, v.foodID)
	if errors.Is(err, types.ErrFoodNotFound) {
		return detail{}, nil
	}
	if err != nil {
		return detail{}, err
	}

	d := detail{food: food, requests: []*types.Request{}}

	sess := v.Session()
	if sess == nil || !food.OwnedBy(&sess.User) {
		return d, nil
	}

	requests, err := v.svc.FoodRequests(ctx, v.foodID, sess)
	if err != nil {
		if ctx.Err() != nil {
			return detail{}, ctx.Err()
		}
		// The food still renders; the owner just sees no requests.
		v.logger.WithError(err).WithField("food_id", v.foodID).Warn("failed to load food requests")
		return d, nil
	}
	d.requests = requests

	return d, nil
}

func (v *FoodDetails) Load(ctx context.Context) error {
	return v.detail.Load(ctx)
}

func (v *FoodDetails) Retry(ctx context.Context, sess *types.Session) error {
	v.bind(sess)
	return v.detail.Retry(ctx)
}

func (v *FoodDetails) FoodID() string { return v.foodID }
func (v *FoodDetails) State() State   { return v.detail.State() }
func (v *FoodDetails) Err() error     { return v.detail.Err() }

// Food is nil until loaded, and nil after loading when the food does not
// exist.
func (v *FoodDetails) Food() *types.Food {
	return v.detail.Data().food
}

func (v *FoodDetails) Requests() []*types.Request {
	return v.detail.Data().requests
}

func (v *FoodDetails) NotFound() bool {
	return v.State() == StateReady && v.Food() == nil
}

// IsOwner reports whether the bound session's user donated the food.
func (v *FoodDetails) IsOwner() bool {
	return v.Food().OwnedBy(v.user())
}

// SubmitRequest validates input, files the request, and puts the created
// request at the top of the list.
func (v *FoodDetails) SubmitRequest(ctx context.Context, sess *types.Session, input types.RequestInput) (*types.Request, error) {
	if sess == nil {
		return nil, types.ErrSignInRequired
	}

	input = types.RequestInput{
		Location: strings.TrimSpace(input.Location),
		Reason:   strings.TrimSpace(input.Reason),
		Contact:  strings.TrimSpace(input.Contact),
	}
	if fields := input.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	food := v.Food()
	if food == nil {
		return nil, types.ErrFoodNotFound
	}
	if !food.IsAvailable() {
		return nil, ErrNotAvailable
	}
	v.bind(sess)

	var created *types.Request

	m := v.mutation("submit_request", "request:"+v.foodID)
	m.failure = "Failed to submit request"
	m.success = Notification{Level: LevelSuccess, Message: "Request submitted, waiting for owner response"}
	m.call = func() error {
		var err error
		created, err = v.svc.SubmitRequest(ctx, v.foodID, input, sess)
		return err
	}
	m.apply = func() {
		v.detail.Update(func(d detail) detail {
			d.requests = append([]*types.Request{created}, d.requests...)
			return d
		})
	}

	if err := m.run(); err != nil {
		return nil, err
	}
	return created, nil
}

// ChangeRequestStatus accepts or rejects one pending request. Accepting also
// marks the food donated. Nothing else in the view changes.
func (v *FoodDetails) ChangeRequestStatus(ctx context.Context, sess *types.Session, requestID string, status types.RequestStatus) error {
	if sess == nil {
		return types.ErrSignInRequired
	}
	if status != types.RequestStatusAccepted && status != types.RequestStatusRejected {
		return types.ErrInvalidStatus
	}
	if !v.Food().OwnedBy(&sess.User) {
		v.notes.Push(LevelError, "Not allowed")
		return ErrNotOwner
	}
	req := findRequest(v.Requests(), requestID)
	if req == nil {
		return types.ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return ErrDecided
	}
	v.bind(sess)

	m := v.mutation("change_request_status", requestID)
	m.failure = "Operation failed"
	if status == types.RequestStatusAccepted {
		m.success = Notification{Level: LevelSuccess, Message: "Request accepted, food marked as donated"}
	} else {
		m.success = Notification{Level: LevelInfo, Message: "Request rejected"}
	}
	m.call = func() error {
		_, err := v.svc.UpdateRequestStatus(ctx, requestID, status, sess)
		return err
	}
	m.apply = func() {
		v.detail.Update(func(d detail) detail {
			requests := make([]*types.Request, len(d.requests))
			for i, r := range d.requests {
				if r != nil && r.ID == requestID {
					patched := *r
					patched.Status = status
					r = &patched
				}
				requests[i] = r
			}
			d.requests = requests

			if status == types.RequestStatusAccepted && d.food != nil {
				food := *d.food
				food.Status = types.FoodStatusDonated
				d.food = &food
			}
			return d
		})
	}
	return m.run()
}

// MarkDonated lets the donator close the listing without accepting a
// request.
func (v *FoodDetails) MarkDonated(ctx context.Context, sess *types.Session) error {
	if sess == nil {
		return types.ErrSignInRequired
	}
	if !v.Food().OwnedBy(&sess.User) {
		v.notes.Push(LevelError, "Not allowed")
		return ErrNotOwner
	}
	v.bind(sess)

	donated := types.FoodStatusDonated
	var updated *types.Food

	m := v.mutation("mark_donated", v.foodID)
	m.failure = "Update failed"
	m.success = Notification{Level: LevelSuccess, Message: "Marked as donated"}
	m.call = func() error {
		var err error
		updated, err = v.svc.UpdateFood(ctx, v.foodID, types.FoodUpdate{Status: &donated}, sess)
		return err
	}
	m.apply = func() {
		v.detail.Update(func(d detail) detail {
			if updated != nil && updated.ID == v.foodID {
				d.food = updated
				return d
			}
			if d.food != nil {
				food := *d.food
				food.Status = types.FoodStatusDonated
				d.food = &food
			}
			return d
		})
	}
	return m.run()
}

func findRequest(requests []*types.Request, id string) *types.Request {
	for _, r := range requests {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}
