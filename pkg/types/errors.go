package types

import "errors"

var (
	ErrFoodNotFound    = errors.New("food not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrMissingID       = errors.New("missing id")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrSignInRequired  = errors.New("sign in required")
)
