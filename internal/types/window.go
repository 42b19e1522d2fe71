package types

import (
	"fmt"
	"time"
)

// TimeWindow is an immutable start/end time range. The zero value is not
// valid; construct via NewTimeWindow or LastNDays.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow creates a TimeWindow, failing when start is not strictly
// before end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, NewAppError(
			ErrCodeValidationTimeWindow,
			fmt.Sprintf("window start %s must be before end %s",
				start.Format(time.RFC3339), end.Format(time.RFC3339)),
			nil,
		)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// LastNDays returns the window [now - n days, now] using a single read of the
// clock. n must be positive.
func LastNDays(clock Clock, n int) (TimeWindow, error) {
	if n <= 0 {
		return TimeWindow{}, NewAppError(
			ErrCodeValidationTimeWindow,
			fmt.Sprintf("day count must be positive, got %d", n),
			nil,
		)
	}
	now := clock.Now()
	return TimeWindow{Start: now.AddDate(0, 0, -n), End: now}, nil
}

// Duration returns the elapsed time covered by the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether ts falls inside the window. Both boundaries are
// inclusive.
func (w TimeWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}
