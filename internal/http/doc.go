// Package http provides HTTP handlers and middleware for the proctor gate API.
//
// The router exposes the following endpoints:
//   - POST /sessions: admits a participant. Body: {"access_id","access_secret",
//     "event_id"}. Response: {"session_id","state","time_remaining_ms",
//     "window_end"}. Rejections distinguish invalid credentials (401) from a
//     valid credential presented outside the access window (403).
//   - POST /sessions/{id}/signals: reports one monitoring signal. Body:
//     {"signal","sequence"}. Replayed sequence numbers return 409; signals for
//     terminal sessions are absorbed with "ignored": true so clients learn the
//     terminal state from the same response.
//   - POST /sessions/{id}/heartbeat: records a presence ping. An optional
//     {"at"} RFC3339 timestamp defends tests and proxies; out-of-order values
//     are dropped server-side.
//   - GET /sessions/{id}: read-only status {"state","violation_count",
//     "time_remaining_ms"} polled by UI and dashboard layers.
//   - GET /sessions/{id}/audit: the append-only audit trail for reporting.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
