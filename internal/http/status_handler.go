package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/proctor-gate/internal/persistence"
	"github.com/example/proctor-gate/internal/proctor"
)

type statusService interface {
	Status(ctx context.Context, sessionID string) (proctor.SessionStatus, error)
}

type auditReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]persistence.AuditEntry, error)
}

type StatusHandler struct {
	service   statusService
	audit     auditReader
	responder responder
	logger    *slog.Logger
}

func NewStatusHandler(service statusService, audit auditReader, logger *slog.Logger) *StatusHandler {
	base := defaultLogger(logger)
	return &StatusHandler{service: service, audit: audit, responder: newResponder(base), logger: base}
}

func (h *StatusHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StatusHandler", operation, attrs...)
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || sessionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	status, err := h.service.Status(r.Context(), sessionID)
	if err != nil {
		h.log(r.Context(), "Status", "session_id", sessionID).ErrorContext(r.Context(), "status lookup failed", "error", err, "error_kind", proctor.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{
		SessionID:       status.SessionID,
		State:           string(status.State),
		ViolationCount:  status.ViolationCount,
		TimeRemainingMS: status.TimeRemaining.Milliseconds(),
	})
}

func (h *StatusHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.audit == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || sessionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	// Resolve the session first so an unknown id is a 404, not an empty list.
	if _, err := h.service.Status(r.Context(), sessionID); err != nil {
		h.log(r.Context(), "Audit", "session_id", sessionID).ErrorContext(r.Context(), "audit lookup failed", "error", err, "error_kind", proctor.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries, err := h.audit.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.log(r.Context(), "Audit", "session_id", sessionID).ErrorContext(r.Context(), "audit listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := auditResponse{
		SessionID: sessionID,
		Entries:   make([]auditEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		payload.Entries = append(payload.Entries, auditEntryResponse{
			SequenceNumber: entry.SequenceNumber,
			Kind:           entry.Kind,
			Signal:         entry.Signal,
			Severity:       entry.Severity,
			FromState:      entry.FromState,
			ToState:        entry.ToState,
			Reason:         entry.Reason,
			Timestamp:      entry.Timestamp.Format(time.RFC3339Nano),
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type statusResponse struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	ViolationCount  int    `json:"violation_count"`
	TimeRemainingMS int64  `json:"time_remaining_ms"`
}

type auditResponse struct {
	SessionID string               `json:"session_id"`
	Entries   []auditEntryResponse `json:"entries"`
}

type auditEntryResponse struct {
	SequenceNumber uint64 `json:"sequence_number"`
	Kind           string `json:"kind"`
	Signal         string `json:"signal,omitempty"`
	Severity       string `json:"severity,omitempty"`
	FromState      string `json:"from_state,omitempty"`
	ToState        string `json:"to_state,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Timestamp      string `json:"timestamp"`
}
