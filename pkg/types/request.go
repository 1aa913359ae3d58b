package types

import (
	"encoding/json"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further status change is expected.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

type Requester struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

// Request is a recipient's claim against a single food.
type Request struct {
	ID        string        `json:"_id"`
	FoodID    string        `json:"foodId"`
	Requester Requester     `json:"requester"`
	Contact   string        `json:"contact"`
	Location  string        `json:"location"`
	Reason    string        `json:"reason"`
	Status    RequestStatus `json:"status"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`

	// Populated by the "my requests" endpoint only.
	Food      *Food  `json:"food,omitempty"`
	FoodImage string `json:"foodImage,omitempty"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if r.ID == "" {
		r.ID = aux.AltID
	}

	if r.Status == "" {
		r.Status = RequestStatusPending
	}

	return nil
}

func (r *Request) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (r *Request) Image() string {
	if r.Food != nil && r.Food.Image != "" {
		return r.Food.Image
	}
	return r.FoodImage
}

// RequestInput is what a requester submits against a food.
type RequestInput struct {
	Location string `json:"location" form:"location"`
	Reason   string `json:"reason" form:"reason"`
	Contact  string `json:"contact" form:"contact"`
}

// Validate returns per-field messages for blank fields.
func (in RequestInput) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(in.Location) == "" {
		errs["location"] = "Add pickup location"
	}
	if strings.TrimSpace(in.Reason) == "" {
		errs["reason"] = "Write a short reason"
	}
	if strings.TrimSpace(in.Contact) == "" {
		errs["contact"] = "Provide contact number"
	}
	return errs
}
