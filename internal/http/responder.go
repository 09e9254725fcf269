package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/proctor-gate/internal/proctor"
)

var (
	errBadRequestBody     = errors.New("request body is not valid JSON")
	errInvalidSessionID   = errors.New("invalid session id")
	errInvalidHeartbeatAt = errors.New("heartbeat timestamp must be RFC3339")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps the domain error taxonomy onto HTTP statuses. Every
// mapped condition is recoverable from the service's perspective; only
// unclassified errors fall through to 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, proctor.ErrInvalidCredential):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "ADMISSION_INVALID_CREDENTIAL",
			Message:   "access credential was not accepted",
		})
	case errors.Is(err, proctor.ErrOutsideWindow):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "ADMISSION_OUTSIDE_WINDOW",
			Message:   "credential is valid but the access window is closed",
		})
	case errors.Is(err, proctor.ErrSessionNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "SESSION_NOT_FOUND",
			Message:   "no such session",
		})
	case errors.Is(err, proctor.ErrStaleSequence):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SIGNAL_STALE_SEQUENCE",
			Message:   "signal sequence number was already recorded",
		})
	case errors.Is(err, proctor.ErrUnknownSignal):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "SIGNAL_UNKNOWN",
			Message:   "signal tag is not recognized",
		})
	default:
		var vErr *proctor.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "request validation failed",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
