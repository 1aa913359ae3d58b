package foodapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"foodshare/pkg/types"
)

var ErrUnexpectedResponse = errors.New("unexpected response from food api")

// Error is a non-2xx response. Message is the server's body text, or the
// operation's default message when the body is empty.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func newError(status int, body []byte, fallback string) *Error {
	msg := strings.TrimSpace(string(body))

	// A JSON object body usually wraps the text in error or message.
	if strings.HasPrefix(msg, "{") {
		var wrapped struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &wrapped); err == nil {
			switch {
			case wrapped.Error != "":
				msg = wrapped.Error
			case wrapped.Message != "":
				msg = wrapped.Message
			}
		}
	}

	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed (status %d)", status)
	}

	return &Error{StatusCode: status, Message: msg}
}

// IsNotFound reports whether err is a 404 from the API or a not-found
// sentinel.
func IsNotFound(err error) bool {
	if errors.Is(err, types.ErrFoodNotFound) || errors.Is(err, types.ErrRequestNotFound) {
		return true
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// Message returns the text to show a user for err, or fallback when err
// carries nothing presentable.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
