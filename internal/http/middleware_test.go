package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiterPool(t *testing.T) {
	t.Parallel()

	t.Run("evicts entries idle past the TTL", func(t *testing.T) {
		t.Parallel()

		current := time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC)
		pool := newLimiterPool(rate.Limit(1), 1, time.Minute, func() time.Time { return current })

		pool.allow("session-1")
		pool.allow("session-2")
		if got := pool.size(); got != 2 {
			t.Fatalf("expected two tracked sessions, got %d", got)
		}

		// session-2 keeps submitting; session-1 goes quiet.
		current = current.Add(45 * time.Second)
		pool.allow("session-2")

		current = current.Add(30 * time.Second)
		pool.allow("session-3")
		if got := pool.size(); got != 2 {
			t.Fatalf("expected the idle session to be evicted, got %d tracked", got)
		}

		// A returning session simply gets a fresh bucket.
		if !pool.allow("session-1") {
			t.Fatal("expected a fresh bucket for the returning session")
		}
	})

	t.Run("eviction does not relax the limit for live sessions", func(t *testing.T) {
		t.Parallel()

		current := time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC)
		pool := newLimiterPool(rate.Limit(1), 2, time.Minute, func() time.Time { return current })

		if !pool.allow("session-1") || !pool.allow("session-1") {
			t.Fatal("expected the burst to be admitted")
		}
		if pool.allow("session-1") {
			t.Fatal("expected the third immediate submission to be throttled")
		}
	})
}

func TestRateLimitedSession(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		method string
		path   string
		wantID string
		wantOK bool
	}{
		{name: "signals path", method: http.MethodPost, path: "/sessions/s-1/signals", wantID: "s-1", wantOK: true},
		{name: "heartbeat path", method: http.MethodPost, path: "/sessions/s-1/heartbeat", wantID: "s-1", wantOK: true},
		{name: "admission passes through", method: http.MethodPost, path: "/sessions", wantOK: false},
		{name: "status read passes through", method: http.MethodGet, path: "/sessions/s-1", wantOK: false},
		{name: "audit read passes through", method: http.MethodGet, path: "/sessions/s-1/audit", wantOK: false},
		{name: "other actions pass through", method: http.MethodPost, path: "/sessions/s-1/other", wantOK: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(tc.method, tc.path, nil)
			id, ok := rateLimitedSession(r)
			if ok != tc.wantOK || id != tc.wantID {
				t.Fatalf("rateLimitedSession(%s %s) = (%q, %v), want (%q, %v)", tc.method, tc.path, id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}
