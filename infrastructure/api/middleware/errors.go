package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
	"github.com/sebastien-sq/ragserve/infrastructure/loader"
	"github.com/sebastien-sq/ragserve/infrastructure/provider"
	"github.com/sebastien-sq/ragserve/internal/database"
)

// ErrorBody is the wire shape of an error response.
type ErrorBody struct {
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps an error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps an error onto an HTTP status and writes the error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := statusFor(err)
	requestID := chimiddleware.GetReqID(r.Context())

	if logger != nil {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", requestID),
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	WriteJSON(w, status, ErrorResponse{Error: ErrorBody{
		Status:    http.StatusText(status),
		Detail:    err.Error(),
		RequestID: requestID,
	}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, loader.ErrUnsupportedFormat), errors.Is(err, service.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
