package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status            int    `json:"-"`
	Message           string `json:"error"`
	RemainingAttempts *int   `json:"remainingAttempts"`
	Locked            bool   `json:"locked"`
	RemainingSeconds  int64  `json:"remainingSeconds"`
}

func (e *APIError) Error() string {
	switch {
	case e.Locked:
		return fmt.Sprintf("%s (locked for another %ds)", e.Message, e.RemainingSeconds)
	case e.RemainingAttempts != nil:
		return fmt.Sprintf("%s (%d attempt(s) left)", e.Message, *e.RemainingAttempts)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
