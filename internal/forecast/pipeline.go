package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"frostwatch/internal/types"
)

// DefaultWindowDays is the size of the reading window fed to the models.
const DefaultWindowDays = 10

// DefaultModelTimeout bounds one Train+Predict pair per capability. A model
// call that never returns would otherwise wedge the pipeline; expiry is
// treated as an internal computation failure and the neutral signal is
// substituted.
const DefaultModelTimeout = 10 * time.Minute

// PredictionMetrics is the narrow metrics interface the pipeline records to.
type PredictionMetrics interface {
	RecordPrediction(level types.FrostLevel)
}

// signalRunner serializes access to one forecasting capability instance.
// The capability's internal trained-state is a cache the pipeline must not
// race against: overlapping pipeline invocations take the per-instance lock
// so a model never sees two concurrent Train/Predict calls.
type signalRunner struct {
	model   types.ForecastModel
	timeout time.Duration
	mu      sync.Mutex
}

// run trains the model (no-op when already trained) and predicts the frost
// probability for the window. Any failure or timeout yields the neutral
// probability rather than an error, so one capability failing degrades the
// forecast instead of aborting it. The returned bool reports whether the
// neutral fallback was used.
func (r *signalRunner) run(ctx context.Context, readings []types.Reading, logger *slog.Logger) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.model.Train(ctx, readings); err != nil {
		logger.ErrorContext(ctx, "model training failed, using neutral signal",
			"model", string(r.model.Kind()),
			"error", err,
		)
		return NeutralProbability, true
	}

	p, err := r.model.PredictProbability(ctx, readings)
	if err != nil {
		logger.ErrorContext(ctx, "model prediction failed, using neutral signal",
			"model", string(r.model.Kind()),
			"error", err,
		)
		return NeutralProbability, true
	}

	return Clamp(p), false
}

// Generator orchestrates one run of the prediction pipeline.
type Generator struct {
	sensors types.SensorSource
	repo    types.PredictionRepository
	blender *Blender
	signalA *signalRunner
	signalB *signalRunner

	windowDays int
	clock      types.Clock
	logger     *slog.Logger
	metrics    PredictionMetrics
}

// GeneratorConfig holds the dependencies for creating a Generator.
type GeneratorConfig struct {
	Sensors      types.SensorSource
	Repo         types.PredictionRepository
	SignalA      types.ForecastModel
	SignalB      types.ForecastModel
	WindowDays   int
	ModelTimeout time.Duration
	Clock        types.Clock
	Logger       *slog.Logger
	Metrics      PredictionMetrics // optional
}

// NewGenerator creates a Generator with the given configuration.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Generator{
		sensors:    cfg.Sensors,
		repo:       cfg.Repo,
		blender:    NewBlender(cfg.Clock),
		signalA:    &signalRunner{model: cfg.SignalA, timeout: cfg.ModelTimeout},
		signalB:    &signalRunner{model: cfg.SignalB, timeout: cfg.ModelTimeout},
		windowDays: cfg.WindowDays,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// GeneratePrediction runs the full pipeline once: fetch the reading window,
// run both forecasting capabilities, blend, and append to the ledger.
//
// The two capabilities run concurrently; each is serialized against other
// pipeline invocations on its own instance lock. An empty reading window
// fails the run; a single capability failure does not.
func (g *Generator) GeneratePrediction(ctx context.Context) (types.Prediction, error) {
	window, err := types.LastNDays(g.clock, g.windowDays)
	if err != nil {
		return types.Prediction{}, err
	}

	readings, err := g.sensors.FetchReadings(ctx, window)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("fetching reading window: %w", err)
	}
	if len(readings) == 0 {
		return types.Prediction{}, types.NewAppError(
			types.ErrCodeSensorNoData,
			fmt.Sprintf("no sensor readings in the last %d days", g.windowDays),
			nil,
		)
	}

	g.logger.InfoContext(ctx, "generating prediction",
		"window_start", window.Start.Format(time.RFC3339),
		"window_end", window.End.Format(time.RFC3339),
		"reading_count", len(readings),
	)

	var (
		probA, probB       float64
		neutralA, neutralB bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		probA, neutralA = g.signalA.run(egCtx, readings, g.logger)
		return nil
	})
	eg.Go(func() error {
		probB, neutralB = g.signalB.run(egCtx, readings, g.logger)
		return nil
	})
	// Runners never return errors; Wait is for synchronization only.
	_ = eg.Wait()

	prediction, err := g.blender.Blend(probA, probB)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("blending signals: %w", err)
	}

	if err := g.repo.Save(ctx, prediction); err != nil {
		return types.Prediction{}, fmt.Errorf("saving prediction: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordPrediction(prediction.FrostLevel)
	}

	g.logger.InfoContext(ctx, "prediction generated",
		"prediction_id", prediction.ID,
		"probability", prediction.Probability,
		"frost_level", string(prediction.FrostLevel),
		"signal_a", probA,
		"signal_b", probB,
		"signal_a_neutral", neutralA,
		"signal_b_neutral", neutralB,
	)

	return prediction, nil
}
