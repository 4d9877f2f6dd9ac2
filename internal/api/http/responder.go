package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
)

var errBadRequestBody = errors.New("request body is not valid JSON")

// errorResponse is the uniform error payload.
type errorResponse struct {
	Message string `json:"message"`
}

// writeJSON encodes the payload with the given status. A nil payload or
// http.StatusNoContent writes the status line only.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.ErrorKV(ctx, "Encoding response failed", "error", err)
	}
}

// writeError renders the error as the uniform payload, logging server-side
// failures.
func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)

	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorKV(ctx, "Request failed", "status", status, "error", err)
		}
	}

	writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeStoreError maps alarm store and domain validation errors to statuses.
func writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alarmstore.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrMissingID),
		errors.Is(err, domain.ErrInvalidClockTime),
		errors.Is(err, domain.ErrEndNotAfterStart):
		writeError(ctx, w, http.StatusUnprocessableEntity, err)
	default:
		writeError(ctx, w, http.StatusInternalServerError, err)
	}
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errBadRequestBody
	}

	return nil
}
