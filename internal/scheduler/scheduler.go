package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"frostwatch/internal/types"
)

// defaultTickInterval is how often the scheduling loop re-evaluates the
// trigger table against the clock. One second keeps worst-case firing skew
// well inside the smallest misfire grace (30s).
const defaultTickInterval = time.Second

// Job is a schedulable unit of work. The context is derived from the
// scheduler's base context and is cancelled on Stop.
type Job func(ctx context.Context) error

// JobMetrics is the narrow metrics interface the scheduler records to.
type JobMetrics interface {
	RecordJobRun(name string, outcome types.JobOutcome)
}

// entry is one row of the trigger table.
type entry struct {
	name    string
	trigger Trigger
	grace   time.Duration
	job     Job

	next    time.Time   // earliest unfired due instant; zero until Start
	running atomic.Bool // overlap guard: one run per entry at a time
}

// Scheduler owns the trigger table and the scheduling loop.
//
// The loop evaluates due times and dispatches each run on its own goroutine,
// so a long-running job (forecast generation can take minutes) never blocks
// the evaluation of other triggers. A panic or error inside a job body is
// caught and logged; it does not stop the scheduler or affect other jobs'
// future firings.
//
// Misfire handling: when a trigger could not fire on time, the run still
// executes as long as the delay past the most recent missed due instant is
// within the entry's grace window; beyond that the run is skipped. Multiple
// missed firings always coalesce into at most one catch-up run, because the
// next due instant is recomputed from the current time after every
// evaluation.
type Scheduler struct {
	clock   types.Clock
	logger  *slog.Logger
	metrics JobMetrics

	mu      sync.Mutex
	entries []*entry
	started bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Config holds the dependencies for creating a Scheduler.
type Config struct {
	Clock   types.Clock
	Logger  *slog.Logger
	Metrics JobMetrics // optional
}

// New creates a Scheduler with an empty trigger table.
func New(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Register adds a named trigger bound to a job. Registration must happen
// before Start.
func (s *Scheduler) Register(name string, trigger Trigger, grace time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("scheduler: Register called after Start")
	}
	s.entries = append(s.entries, &entry{
		name:    name,
		trigger: trigger,
		grace:   grace,
		job:     job,
	})
}

// Start arms all triggers and begins the scheduling loop. Calling Start
// twice is an error.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("scheduler: Start called twice")
	}
	s.started = true
	s.arm(s.clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop cancels all future firings and the contexts of in-flight jobs, then
// waits for the scheduling loop (not the jobs) to exit. Safe to call once
// after Start; jobs hold no scheduler locks, so Stop cannot deadlock.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// arm computes the first due instant for every entry. Caller holds s.mu or
// has exclusive access.
func (s *Scheduler) arm(now time.Time) {
	for _, e := range s.entries {
		e.next = e.trigger.Next(now)
		s.logger.Info("trigger armed",
			"job", e.name,
			"schedule", e.trigger.Describe(),
			"first_run", e.next.Format(time.RFC3339),
			"misfire_grace", e.grace.String(),
		)
	}
}

// run is the scheduling loop. It owns no job execution: due entries are
// dispatched to worker goroutines so the loop stays responsive.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(defaultTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evaluate(ctx, s.clock.Now())
		}
	}
}

// Evaluate fires every entry whose due time has passed, applying misfire
// grace and coalescing. It is exported for deterministic tests; production
// code relies on the loop started by Start.
func (s *Scheduler) Evaluate(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.next.IsZero() || now.Before(e.next) {
			continue
		}
		due = append(due, e)
		// Recomputing from now collapses every missed slot into this one
		// evaluation: at most one catch-up run per entry.
		e.next = e.trigger.Next(now)
	}
	s.mu.Unlock()

	for _, e := range due {
		// The most recent missed due instant decides the misfire, not the
		// oldest: resuming within grace of the latest slot runs once.
		lastDue := e.trigger.Prev(now)
		if delay := now.Sub(lastDue); delay > e.grace {
			s.logger.Warn("misfire grace exceeded, skipping run",
				"job", e.name,
				"due", lastDue.Format(time.RFC3339),
				"delay", delay.String(),
				"grace", e.grace.String(),
			)
			s.record(e.name, types.JobOutcomeSkipped)
			continue
		}
		s.dispatch(ctx, e, now)
	}
}

// dispatch runs one entry on its own goroutine, guarding against overlap
// with the entry's previous run and containing panics.
func (s *Scheduler) dispatch(ctx context.Context, e *entry, firedAt time.Time) {
	if !e.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in flight, skipping",
			"job", e.name,
		)
		s.record(e.name, types.JobOutcomeSkipped)
		return
	}

	s.logger.Info("job firing",
		"job", e.name,
		"fired_at", firedAt.Format(time.RFC3339),
	)

	go func() {
		defer e.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panicked",
					"job", e.name,
					"panic", r,
				)
				s.record(e.name, types.JobOutcomeFailure)
			}
		}()

		start := s.clock.Now()
		if err := e.job(ctx); err != nil {
			s.logger.Error("job failed",
				"job", e.name,
				"duration", s.clock.Now().Sub(start).String(),
				"error", err,
			)
			s.record(e.name, types.JobOutcomeFailure)
			return
		}

		s.logger.Info("job completed",
			"job", e.name,
			"duration", s.clock.Now().Sub(start).String(),
		)
		s.record(e.name, types.JobOutcomeSuccess)
	}()
}

func (s *Scheduler) record(name string, outcome types.JobOutcome) {
	if s.metrics != nil {
		s.metrics.RecordJobRun(name, outcome)
	}
}
