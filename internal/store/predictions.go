// Package store provides in-memory implementations of the prediction ledger
// and the farmer directory. They are the default backing stores when no
// database is configured; the pgx-backed equivalents in internal/db satisfy
// the same interfaces.
package store

import (
	"context"
	"sync"
	"time"

	"frostwatch/internal/types"
)

// PredictionStore is an append-only in-memory prediction ledger with
// day-scoped aggregation.
//
// All methods are safe for concurrent use: saves are linearized behind a
// mutex and reads observe a consistent snapshot of every save that completed
// before the read began. On equal CreatedAt timestamps, Latest returns the
// last inserted prediction.
type PredictionStore struct {
	clock types.Clock

	mu          sync.RWMutex
	predictions []types.Prediction
}

// NewPredictionStore creates an empty PredictionStore. A nil clock falls
// back to the real UTC clock.
func NewPredictionStore(clock types.Clock) *PredictionStore {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &PredictionStore{clock: clock}
}

// Save appends the prediction to the ledger. It never overwrites.
func (s *PredictionStore) Save(_ context.Context, p types.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append(s.predictions, p)
	return nil
}

// Latest returns the prediction with the maximum CreatedAt, or nil when the
// ledger is empty. Scanning in insertion order with >= makes the tie-break
// deterministic: last inserted wins.
func (s *PredictionStore) Latest(_ context.Context) (*types.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.predictions) == 0 {
		return nil, nil
	}
	best := s.predictions[0]
	for _, p := range s.predictions[1:] {
		if !p.CreatedAt.Before(best.CreatedAt) {
			best = p
		}
	}
	return &best, nil
}

// PredictionsOnDate returns all predictions whose CreatedAt falls on the UTC
// calendar date of the given time, in insertion order.
func (s *PredictionStore) PredictionsOnDate(_ context.Context, date time.Time) ([]types.Prediction, error) {
	y, m, d := date.UTC().Date()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Prediction
	for _, p := range s.predictions {
		py, pm, pd := p.CreatedAt.UTC().Date()
		if py == y && pm == m && pd == d {
			out = append(out, p)
		}
	}
	return out, nil
}

// TodaysPredictions returns the predictions created on the current UTC date,
// evaluated once per call.
func (s *PredictionStore) TodaysPredictions(ctx context.Context) ([]types.Prediction, error) {
	return s.PredictionsOnDate(ctx, s.clock.Now())
}

// DailyAverageProbability returns the plain unweighted arithmetic mean of
// the probabilities of today's predictions. The second return value is false
// when no prediction exists for the current UTC date.
func (s *PredictionStore) DailyAverageProbability(ctx context.Context) (float64, bool, error) {
	today, err := s.TodaysPredictions(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(today) == 0 {
		return 0, false, nil
	}
	var sum float64
	for _, p := range today {
		sum += p.Probability
	}
	return sum / float64(len(today)), true, nil
}
