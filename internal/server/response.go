package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/moodlog/internal/shared"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidMood),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidFlag):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrActivationNotFound),
		errors.Is(err, shared.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrNotArmed),
		errors.Is(err, shared.ErrAlreadyCommitted),
		errors.Is(err, shared.ErrDisposed):
		return http.StatusConflict
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrStoreRead),
		errors.Is(err, shared.ErrStoreWrite):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
