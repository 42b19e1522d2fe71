// Package scheduler implements the FrostWatch job scheduler: a table of
// named wall-clock and fixed-interval triggers evaluated against an
// injectable clock, with first-class misfire-grace and coalescing semantics
// and per-job failure isolation.
package scheduler

import (
	"fmt"
	"time"
)

// Trigger computes due instants for a recurring job. Implementations must be
// pure functions of their input time so scheduling is deterministic under an
// injected clock.
type Trigger interface {
	// Next returns the earliest due instant strictly after t.
	Next(t time.Time) time.Time
	// Prev returns the most recent due instant at or before t.
	Prev(t time.Time) time.Time
	// Describe returns a human-readable form for logs.
	Describe() string
}

// DailyTrigger fires once per day at a fixed UTC wall-clock time.
type DailyTrigger struct {
	Hour   int
	Minute int
}

// NewDailyTrigger creates a DailyTrigger for hh:mm UTC.
func NewDailyTrigger(hour, minute int) DailyTrigger {
	return DailyTrigger{Hour: hour, Minute: minute}
}

// Next returns the next hh:mm UTC instant strictly after t.
func (d DailyTrigger) Next(t time.Time) time.Time {
	t = t.UTC()
	candidate := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// Prev returns the most recent hh:mm UTC instant at or before t.
func (d DailyTrigger) Prev(t time.Time) time.Time {
	t = t.UTC()
	candidate := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if candidate.After(t) {
		candidate = candidate.AddDate(0, 0, -1)
	}
	return candidate
}

// Describe implements Trigger.
func (d DailyTrigger) Describe() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", d.Hour, d.Minute)
}

// IntervalTrigger fires every Every, aligned to the Unix epoch so due
// instants are stable across restarts (every-5-minutes means minute
// multiples of five, not five minutes from whenever the process started).
type IntervalTrigger struct {
	Every time.Duration
}

// NewIntervalTrigger creates an IntervalTrigger. Every must be positive.
func NewIntervalTrigger(every time.Duration) IntervalTrigger {
	if every <= 0 {
		panic("scheduler: interval trigger requires a positive period")
	}
	return IntervalTrigger{Every: every}
}

// Next returns the next aligned instant strictly after t.
func (i IntervalTrigger) Next(t time.Time) time.Time {
	prev := i.Prev(t)
	return prev.Add(i.Every)
}

// Prev returns the most recent aligned instant at or before t.
func (i IntervalTrigger) Prev(t time.Time) time.Time {
	t = t.UTC()
	rem := time.Duration(t.UnixNano()) % i.Every
	return t.Add(-rem).Truncate(0)
}

// Describe implements Trigger.
func (i IntervalTrigger) Describe() string {
	return fmt.Sprintf("every %s", i.Every)
}
