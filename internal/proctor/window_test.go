package proctor

import (
	"testing"
	"time"
)

func TestAccessWindowAdmissible(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.March, 6, 13, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	window := AccessWindow{Start: start, End: end}

	t.Run("start bound is inclusive", func(t *testing.T) {
		t.Parallel()
		if !window.Admissible(start) {
			t.Fatal("expected the exact start instant to be admissible")
		}
	})

	t.Run("end bound is exclusive", func(t *testing.T) {
		t.Parallel()
		if window.Admissible(end) {
			t.Fatal("expected the exact end instant to be rejected")
		}
		if !window.Admissible(end.Add(-time.Nanosecond)) {
			t.Fatal("expected the instant just before the end to be admissible")
		}
	})

	t.Run("before the start is rejected", func(t *testing.T) {
		t.Parallel()
		if window.Admissible(start.Add(-time.Second)) {
			t.Fatal("expected an instant before the start to be rejected")
		}
	})

	t.Run("empty sub-window list means only absolute bounds apply", func(t *testing.T) {
		t.Parallel()
		if !window.Admissible(start.Add(2 * time.Hour)) {
			t.Fatal("expected midpoint to be admissible without sub-windows")
		}
	})
}

func TestAccessWindowSubWindows(t *testing.T) {
	t.Parallel()

	// Saturday 2026-03-07, absolute window covering the whole weekend.
	saturday := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	window := AccessWindow{
		Start: saturday,
		End:   saturday.Add(48 * time.Hour),
		SubWindows: []SubWindow{
			{Day: time.Saturday, Start: 9 * time.Hour, End: 12 * time.Hour},
			{Day: time.Sunday, Start: 14 * time.Hour, End: 18 * time.Hour},
		},
	}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "inside saturday morning block", at: saturday.Add(10 * time.Hour), want: true},
		{name: "sub-window start is inclusive", at: saturday.Add(9 * time.Hour), want: true},
		{name: "sub-window end is exclusive", at: saturday.Add(12 * time.Hour), want: false},
		{name: "saturday afternoon is outside every block", at: saturday.Add(15 * time.Hour), want: false},
		{name: "inside sunday afternoon block", at: saturday.Add(24*time.Hour + 15*time.Hour), want: true},
		{name: "sunday morning is outside every block", at: saturday.Add(24*time.Hour + 10*time.Hour), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := window.Admissible(tc.at); got != tc.want {
				t.Fatalf("Admissible(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestAccessWindowTimeRemaining(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.March, 6, 13, 0, 0, 0, time.UTC)
	window := AccessWindow{Start: start, End: start.Add(time.Hour)}

	if got := window.TimeRemaining(start); got != time.Hour {
		t.Fatalf("expected one hour remaining at start, got %v", got)
	}
	if got := window.TimeRemaining(start.Add(time.Hour)); got != 0 {
		t.Fatalf("expected zero at the end, got %v", got)
	}
	if got := window.TimeRemaining(start.Add(2 * time.Hour)); got != 0 {
		t.Fatalf("expected zero past the end, got %v", got)
	}
}

func TestAccessWindowClone(t *testing.T) {
	t.Parallel()

	window := AccessWindow{
		Start:      time.Now(),
		End:        time.Now().Add(time.Hour),
		SubWindows: []SubWindow{{Day: time.Monday, Start: time.Hour, End: 2 * time.Hour}},
	}

	clone := window.Clone()
	clone.SubWindows[0].Day = time.Friday
	if window.SubWindows[0].Day != time.Monday {
		t.Fatal("expected clone to not alias the sub-window slice")
	}
}
