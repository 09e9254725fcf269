package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// limiterIdleTTL bounds how long an unused per-session limiter survives.
// Sessions that went terminal or silent stop submitting, so their entries age
// out instead of accumulating for the life of the process.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per session and evicts entries that
// have been idle past the TTL.
type limiterPool struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	entries map[string]*limiterEntry
}

func newLimiterPool(limit rate.Limit, burst int, idleTTL time.Duration, now func() time.Time) *limiterPool {
	if now == nil {
		now = time.Now
	}
	return &limiterPool{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		now:     now,
		entries: make(map[string]*limiterEntry),
	}
}

func (p *limiterPool) allow(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.pruneLocked(now)

	entry, ok := p.entries[sessionID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func (p *limiterPool) pruneLocked(now time.Time) {
	for id, entry := range p.entries {
		if now.Sub(entry.lastSeen) > p.idleTTL {
			delete(p.entries, id)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// SignalRateLimit throttles signal and heartbeat submissions per session so a
// misbehaving client cannot flood the gate. Limiters are created lazily,
// keyed by the session id in the request path, and dropped once idle past the
// TTL; admission and read endpoints pass through untouched.
func SignalRateLimit(perMinute, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := newLimiterPool(rate.Limit(float64(perMinute)/60.0), burst, limiterIdleTTL, time.Now)
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := rateLimitedSession(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !pool.allow(sessionID) {
				logger.WarnContext(r.Context(), "signal submission throttled",
					"session_id", sessionID,
					"path", r.URL.Path,
				)
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
					ErrorCode: "SIGNAL_RATE_LIMITED",
					Message:   "too many submissions; slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitedSession extracts the session id from throttled paths:
// POST /sessions/{id}/signals and POST /sessions/{id}/heartbeat.
func rateLimitedSession(r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		return "", false
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/sessions/")
	if !ok {
		return "", false
	}
	sessionID, action, ok := strings.Cut(rest, "/")
	if !ok || sessionID == "" {
		return "", false
	}
	if action != "signals" && action != "heartbeat" {
		return "", false
	}
	return sessionID, true
}
