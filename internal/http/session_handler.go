package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/proctor-gate/internal/proctor"
)

type admissionService interface {
	Admit(ctx context.Context, params proctor.AdmitParams) (proctor.AdmitResult, error)
}

type SessionHandler struct {
	service   admissionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service admissionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Admit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Admit", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode admission request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	accessID := strings.TrimSpace(req.AccessID)
	eventID := strings.TrimSpace(req.EventID)
	logger := h.log(r.Context(), "Admit", "access_id", accessID, "event_id", eventID)

	result, err := h.service.Admit(r.Context(), proctor.AdmitParams{
		AccessID:     accessID,
		AccessSecret: req.AccessSecret,
		EventID:      eventID,
	})
	if err != nil {
		if errors.Is(err, proctor.ErrInvalidCredential) || errors.Is(err, proctor.ErrOutsideWindow) {
			logger.ErrorContext(r.Context(), "admission rejected", "error", err, "error_kind", proctor.ErrorKind(err))
		} else {
			logger.ErrorContext(r.Context(), "admission failed", "error", err, "error_kind", proctor.ErrorKind(err))
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	session := result.Session
	logger.With(
		"session_id", session.ID,
		"scope_id", session.ScopeID,
	).InfoContext(r.Context(), "session admitted")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, admitResponse{
		SessionID:       session.ID,
		State:           string(session.State),
		TimeRemainingMS: session.Window.TimeRemaining(session.AdmittedAt).Milliseconds(),
		WindowEnd:       session.Window.End.Format(time.RFC3339),
	})
}

type admitRequest struct {
	AccessID     string `json:"access_id"`
	AccessSecret string `json:"access_secret"`
	EventID      string `json:"event_id"`
}

type admitResponse struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	TimeRemainingMS int64  `json:"time_remaining_ms"`
	WindowEnd       string `json:"window_end"`
}
