package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/proctor-gate/internal/proctor"
)

type signalService interface {
	ReportSignal(ctx context.Context, params proctor.ReportSignalParams) (proctor.SignalResult, error)
	RecordHeartbeat(ctx context.Context, sessionID string, at time.Time) (proctor.SessionStatus, error)
}

type SignalHandler struct {
	service   signalService
	responder responder
	logger    *slog.Logger
}

func NewSignalHandler(service signalService, logger *slog.Logger) *SignalHandler {
	base := defaultLogger(logger)
	return &SignalHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SignalHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SignalHandler", operation, attrs...)
}

func (h *SignalHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || sessionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Report", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode signal request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Report",
		"session_id", sessionID,
		"signal", req.Signal,
		"sequence", req.Sequence,
	)

	result, err := h.service.ReportSignal(r.Context(), proctor.ReportSignalParams{
		SessionID: sessionID,
		Signal:    proctor.Signal(strings.TrimSpace(req.Signal)),
		Sequence:  req.Sequence,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "signal rejected", "error", err, "error_kind", proctor.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With(
		"state", string(result.Status.State),
		"ignored", result.Ignored,
	).InfoContext(r.Context(), "signal recorded")

	h.responder.writeJSON(r.Context(), w, http.StatusOK, signalResponse{
		SessionID:       result.Status.SessionID,
		State:           string(result.Status.State),
		ViolationCount:  result.Status.ViolationCount,
		TimeRemainingMS: result.Status.TimeRemaining.Milliseconds(),
		Ignored:         result.Ignored,
	})
}

func (h *SignalHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || sessionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req heartbeatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Heartbeat", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode heartbeat request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	var at time.Time
	if trimmed := strings.TrimSpace(req.At); trimmed != "" {
		parsed, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHeartbeatAt)
			return
		}
		at = parsed
	}

	status, err := h.service.RecordHeartbeat(r.Context(), sessionID, at)
	if err != nil {
		h.log(r.Context(), "Heartbeat", "session_id", sessionID).ErrorContext(r.Context(), "heartbeat rejected", "error", err, "error_kind", proctor.ErrorKind(err))
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

type signalRequest struct {
	Signal   string `json:"signal"`
	Sequence uint64 `json:"sequence"`
}

type signalResponse struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	ViolationCount  int    `json:"violation_count"`
	TimeRemainingMS int64  `json:"time_remaining_ms"`
	Ignored         bool   `json:"ignored,omitempty"`
}

type heartbeatRequest struct {
	At string `json:"at"`
}
