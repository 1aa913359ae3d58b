package types

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type FoodStatus string

const (
	FoodStatusAvailable FoodStatus = "Available"
	FoodStatusDonated   FoodStatus = "Donated"
)

func (s FoodStatus) Valid() bool {
	return s == FoodStatusAvailable || s == FoodStatusDonated
}

type Donator struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Photo string  `json:"photo"`
	UID   *string `json:"uid"`
}

// Food is a donation listing as the remote API returns it. The server owns
// the identifier and timestamps.
type Food struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Image          string     `json:"image"`
	QuantityText   string     `json:"quantityText"`
	QuantityNumber int        `json:"quantityNumber"`
	PickupLocation string     `json:"pickupLocation"`
	ExpireDate     string     `json:"expireDate"`
	Notes          string     `json:"notes"`
	Donator        Donator    `json:"donator"`
	Status         FoodStatus `json:"status"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

func (f *Food) UnmarshalJSON(data []byte) error {
	type alias Food
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if f.ID == "" {
		f.ID = aux.AltID
	}

	if f.Status == "" {
		f.Status = FoodStatusAvailable
	}

	return nil
}

// Validate checks the fields the client relies on after decoding a server
// response.
func (f *Food) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrMissingID
	}
	if !f.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (f *Food) IsAvailable() bool {
	return f.Status == FoodStatusAvailable
}

// OwnedBy reports whether the donator of f is the given user. Ownership is
// matched on email, which is what the remote API keys donators by.
func (f *Food) OwnedBy(user *User) bool {
	if f == nil || user == nil || user.Email == "" {
		return false
	}
	return strings.EqualFold(f.Donator.Email, user.Email)
}

func (f *Food) QuantityLabel() string {
	if f.QuantityText != "" {
		return f.QuantityText
	}
	if f.QuantityNumber > 0 {
		return strconv.Itoa(f.QuantityNumber)
	}
	return "1"
}

// ExpireDay returns the calendar date part of ExpireDate for date inputs.
func (f *Food) ExpireDay() string {
	day, _, _ := strings.Cut(f.ExpireDate, "T")
	return day
}

// FoodInput is the payload for creating a food.
type FoodInput struct {
	Name           string     `json:"name"`
	Image          *string    `json:"image"`
	QuantityText   string     `json:"quantityText"`
	QuantityNumber int        `json:"quantityNumber"`
	PickupLocation string     `json:"pickupLocation"`
	ExpireDate     *string    `json:"expireDate"`
	Notes          string     `json:"notes"`
	Donator        Donator    `json:"donator"`
	Status         FoodStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FoodUpdate is a partial food; nil fields are left out of the PATCH body.
type FoodUpdate struct {
	Name           *string     `json:"name,omitempty"`
	Image          *string     `json:"image,omitempty"`
	QuantityText   *string     `json:"quantityText,omitempty"`
	QuantityNumber *int        `json:"quantityNumber,omitempty"`
	PickupLocation *string     `json:"pickupLocation,omitempty"`
	ExpireDate     *string     `json:"expireDate,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	Status         *FoodStatus `json:"status,omitempty"`
}

// Apply copies the set fields of u onto a copy of f.
func (u FoodUpdate) Apply(f Food) Food {
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.Image != nil {
		f.Image = *u.Image
	}
	if u.QuantityText != nil {
		f.QuantityText = *u.QuantityText
	}
	if u.QuantityNumber != nil {
		f.QuantityNumber = *u.QuantityNumber
	}
	if u.PickupLocation != nil {
		f.PickupLocation = *u.PickupLocation
	}
	if u.ExpireDate != nil {
		f.ExpireDate = *u.ExpireDate
	}
	if u.Notes != nil {
		f.Notes = *u.Notes
	}
	if u.Status != nil {
		f.Status = *u.Status
	}
	return f
}

var digitsReg = regexp.MustCompile(`\d+`)

// ParseQuantity extracts the first run of digits in text, or fallback when
// there is none.
func ParseQuantity(text string, fallback int) int {
	m := digitsReg.FindString(text)
	if m == "" {
		return fallback
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return fallback
	}
	return n
}
