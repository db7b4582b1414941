package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// listResponse wraps collections so the top-level JSON value is an object.
type listResponse[T any] struct {
	Items []T `json:"items"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error to its HTTP status and client-facing message.
// Store failures get a generic message; their details stay in the logs.
func statusFor(err error) (int, errorResponse) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: verr.Err.Error(), Field: verr.Field}
	case errors.Is(err, ErrMissingUser), errors.Is(err, ErrInvalidUser):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, services.ErrNoSession):
		return http.StatusConflict, errorResponse{Error: "no active session, start one with POST /api/session"}
	case errors.Is(err, services.ErrSessionClosed):
		return http.StatusConflict, errorResponse{Error: "session ended, start a new one"}
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "data changed concurrently, reloaded; retry the request"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{Error: "request canceled"}
	case core.IsStore(err):
		return http.StatusServiceUnavailable, errorResponse{Error: "storage temporarily unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

// writeError writes err as JSON. Server-side failures are logged with the
// operation that produced them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.errors.LogError(r.Context(), "Request failed", err, op, log.NewFields().
			WithErrorType(errorType(err)))
	}
	writeJSON(w, status, body)
}

func errorType(err error) string {
	if core.IsStore(err) {
		return log.ErrorTypeStore
	}
	return log.ErrorTypeInternal
}
