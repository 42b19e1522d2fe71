package types

import (
	"errors"
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestNewTimeWindow_Valid(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	w, err := NewTimeWindow(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Start.Equal(start) || !w.End.Equal(end) {
		t.Errorf("window = [%v, %v], want [%v, %v]", w.Start, w.End, start, end)
	}
	if w.Duration() != 24*time.Hour {
		t.Errorf("Duration = %v, want 24h", w.Duration())
	}
}

func TestNewTimeWindow_StartNotBeforeEnd(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"equal", at, at},
		{"inverted", at.Add(time.Hour), at},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeWindow(tc.start, tc.end)
			var appErr *AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != ErrCodeValidationTimeWindow {
				t.Errorf("code = %s, want %s", appErr.Code, ErrCodeValidationTimeWindow)
			}
		})
	}
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 30, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	w, err := LastNDays(clock, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.End.Equal(now) {
		t.Errorf("End = %v, want %v", w.End, now)
	}
	wantStart := time.Date(2026, 5, 31, 15, 30, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", w.Start, wantStart)
	}
}

func TestLastNDays_NonPositive(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)}

	for _, n := range []int{0, -3} {
		if _, err := LastNDays(clock, n); err == nil {
			t.Errorf("LastNDays(%d) did not fail", n)
		}
	}
}

func TestTimeWindow_Contains_InclusiveBoundaries(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	w := TimeWindow{Start: start, End: end}

	cases := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"at start", start, true},
		{"at end", end, true},
		{"inside", start.Add(30 * time.Minute), true},
		{"before", start.Add(-time.Nanosecond), false},
		{"after", end.Add(time.Nanosecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Contains(tc.ts); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.ts, got, tc.want)
			}
		})
	}
}
