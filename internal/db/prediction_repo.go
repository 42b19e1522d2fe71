package db

import (
	"context"
	"time"

	"frostwatch/internal/types"
)

// PredictionRepository provides Postgres-backed access to the predictions
// ledger. It satisfies types.PredictionRepository, so the pipeline works
// against memory or Postgres without changes.
//
// The insert_seq bigserial column gives the ledger a stable insertion order;
// Latest breaks CreatedAt ties on it (last inserted wins), matching the
// in-memory store.
type PredictionRepository struct {
	db    DBTX
	clock types.Clock
}

// NewPredictionRepository creates a PredictionRepository backed by the given
// connection (pool or transaction). A nil clock falls back to the real UTC
// clock.
func NewPredictionRepository(db DBTX, clock types.Clock) *PredictionRepository {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &PredictionRepository{db: db, clock: clock}
}

// Save appends the prediction. The ledger is append-only: the primary key on
// id rejects overwrites.
func (r *PredictionRepository) Save(ctx context.Context, p types.Prediction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO predictions
		 (id, probability, frost_level, model_kind, created_at,
		  signal_a_probability, signal_b_probability)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID,
		p.Probability,
		string(p.FrostLevel),
		string(p.ModelKind),
		p.CreatedAt.UTC(),
		p.SignalAProbability,
		p.SignalBProbability,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStorage, "failed to save prediction", err)
	}
	return nil
}

// Latest returns the most recent prediction, or nil when the ledger is empty.
func (r *PredictionRepository) Latest(ctx context.Context) (*types.Prediction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, probability, frost_level, model_kind, created_at,
		        signal_a_probability, signal_b_probability
		 FROM predictions
		 ORDER BY created_at DESC, insert_seq DESC
		 LIMIT 1`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to query latest prediction", err)
	}
	defer rows.Close()

	preds, err := scanPredictions(rows)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return &preds[0], nil
}

// PredictionsOnDate returns the predictions created on the UTC calendar date
// of the given time, in insertion order.
func (r *PredictionRepository) PredictionsOnDate(ctx context.Context, date time.Time) ([]types.Prediction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, probability, frost_level, model_kind, created_at,
		        signal_a_probability, signal_b_probability
		 FROM predictions
		 WHERE (created_at AT TIME ZONE 'UTC')::date = $1::date
		 ORDER BY insert_seq ASC`,
		date.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to query predictions by date", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// TodaysPredictions returns the predictions created on the current UTC date.
func (r *PredictionRepository) TodaysPredictions(ctx context.Context) ([]types.Prediction, error) {
	return r.PredictionsOnDate(ctx, r.clock.Now())
}

// DailyAverageProbability returns the unweighted mean probability over
// today's predictions; false when none exist for the current UTC date.
func (r *PredictionRepository) DailyAverageProbability(ctx context.Context) (float64, bool, error) {
	var avg *float64
	err := r.db.QueryRow(ctx,
		`SELECT AVG(probability)
		 FROM predictions
		 WHERE (created_at AT TIME ZONE 'UTC')::date = $1::date`,
		r.clock.Now().UTC().Format("2006-01-02"),
	).Scan(&avg)
	if err != nil {
		return 0, false, types.NewAppError(types.ErrCodeInternalStorage, "failed to compute daily average", err)
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}

// scanPredictions drains rows into Prediction values.
func scanPredictions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]types.Prediction, error) {
	var out []types.Prediction
	for rows.Next() {
		var (
			p          types.Prediction
			frostLevel string
			modelKind  string
		)
		if err := rows.Scan(
			&p.ID,
			&p.Probability,
			&frostLevel,
			&modelKind,
			&p.CreatedAt,
			&p.SignalAProbability,
			&p.SignalBProbability,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to scan prediction row", err)
		}
		p.FrostLevel = types.FrostLevel(frostLevel)
		p.ModelKind = types.ModelKind(modelKind)
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed reading prediction rows", err)
	}
	return out, nil
}
