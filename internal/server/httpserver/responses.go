package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
)

const (
	maxBodyBytes      = 10 << 10
	maskedServerError = "Server Error"
)

type errorBody struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	Locked            bool   `json:"locked,omitempty"`
	RemainingSeconds  int64  `json:"remainingSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", common.ErrPayloadTooLarge, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", common.ErrValidation)
		}
		return fmt.Errorf("%w: malformed json", common.ErrValidation)
	}
	return nil
}

// statusOf maps service errors onto HTTP statuses. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrOutOfStock),
		errors.Is(err, common.ErrEmptyOrder),
		errors.Is(err, common.ErrPaymentNotSucceeded),
		errors.Is(err, common.ErrIntegrityCheckFailed),
		errors.Is(err, common.ErrInvalidCaptcha),
		errors.Is(err, common.ErrIntentAlreadyConsumed),
		errors.Is(err, common.ErrProviderRejected),
		errors.Is(err, common.ErrMfaNotConfigured),
		errors.Is(err, common.ErrMfaAlreadyEnabled):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrAccountLocked),
		errors.Is(err, common.ErrInvalidMfaCode),
		errors.Is(err, common.ErrChallengeExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrCsrfRejected),
		errors.Is(err, common.ErrAuthorizationMismatch),
		errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrProviderUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var ce *common.CredentialsError
	if errors.As(err, &ce) {
		n := ce.RemainingAttempts
		body.RemainingAttempts = &n
	}
	var le *common.LockoutError
	if errors.As(err, &le) {
		body.Locked = true
		body.RemainingSeconds = int64((le.Remaining + time.Second - 1) / time.Second)
	}

	switch {
	case errors.Is(err, common.ErrInvalidToken):
		body.Error = common.ErrUnauthenticated.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		body.Error = "email already registered"
	case status == http.StatusInternalServerError:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if s.production {
			body.Error = maskedServerError
		}
	}

	writeJSON(w, status, body)
}
