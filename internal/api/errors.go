package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

const GenericErrorMessage = "Something went wrong. Please try again."

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// SessionExpired reports whether the backend rejected the call because it
// could not resolve the user behind the token.
func (e *Error) SessionExpired() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "user id") ||
		strings.Contains(msg, "user_id") ||
		strings.Contains(msg, "userid")
}

func newError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = strings.TrimSpace(payload.Error)
		}
	}
	if msg == "" {
		msg = GenericErrorMessage
	}

	return &Error{Status: status, Message: msg}
}
