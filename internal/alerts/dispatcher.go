// Package alerts implements the daily frost alert dispatcher: it turns the
// day's average predicted probability into one alert payload and fans it out
// to every registered recipient, isolating per-recipient failures.
package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"frostwatch/internal/forecast"
	"frostwatch/internal/types"
)

// DefaultSendConcurrency bounds the parallel notification fan-out.
const DefaultSendConcurrency = 4

// PredictionReader is the slice of the prediction ledger the dispatcher
// needs.
type PredictionReader interface {
	Latest(ctx context.Context) (*types.Prediction, error)
	DailyAverageProbability(ctx context.Context) (float64, bool, error)
}

// DirectoryReader resolves recipient display names. Lookups are best-effort:
// a missing match only drops personalization.
type DirectoryReader interface {
	FindByPhone(ctx context.Context, phoneNumber string) (*types.Farmer, error)
}

// DispatchMetrics is the narrow metrics interface the dispatcher records to.
type DispatchMetrics interface {
	RecordAlertSend(outcome types.JobOutcome)
}

// DispatchReport aggregates per-recipient outcomes of one dispatch. A failed
// send never aborts the remaining sends; it lands here instead.
type DispatchReport struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []string          `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"` // phone -> failure reason
}

// Dispatcher sends the once-daily frost alert.
type Dispatcher struct {
	predictions PredictionReader
	directory   DirectoryReader
	sender      types.NotificationSender
	concurrency int
	clock       types.Clock
	logger      *slog.Logger
	metrics     DispatchMetrics
}

// DispatcherConfig holds the dependencies for creating a Dispatcher.
type DispatcherConfig struct {
	Predictions PredictionReader
	Directory   DirectoryReader
	Sender      types.NotificationSender
	Concurrency int
	Clock       types.Clock
	Logger      *slog.Logger
	Metrics     DispatchMetrics // optional
}

// NewDispatcher creates a Dispatcher with the given configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSendConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		predictions: cfg.Predictions,
		directory:   cfg.Directory,
		sender:      cfg.Sender,
		concurrency: cfg.Concurrency,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// DispatchDailyAlert sends today's alert to every phone number in
// recipients.
//
// The alert payload is built from the day's average probability,
// re-classified through the standard thresholds; the latest prediction's
// signal breakdown is attached purely for context. Sends are attempted
// independently with bounded concurrency: one recipient's failure never
// prevents attempts on the rest, and the report aggregates both outcomes in
// input order. Only unmet preconditions return an error.
func (d *Dispatcher) DispatchDailyAlert(ctx context.Context, recipients []string) (DispatchReport, error) {
	if len(recipients) == 0 {
		return DispatchReport{}, types.NewAppError(
			types.ErrCodeAlertNoRecipients,
			"no recipients to alert",
			nil,
		)
	}

	avg, ok, err := d.predictions.DailyAverageProbability(ctx)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("computing daily average: %w", err)
	}
	if !ok {
		return DispatchReport{}, types.NewAppError(
			types.ErrCodeAlertNoPredictionsToday,
			"no predictions were generated today",
			nil,
		)
	}

	payload := types.Prediction{
		ID:          types.NewPredictionID(),
		Probability: avg,
		FrostLevel:  forecast.ClassifyProbability(avg),
		ModelKind:   types.ModelHybrid,
		CreatedAt:   d.clock.Now().UTC(),
	}

	// Attach the latest prediction's signal breakdown for display. Failure
	// to read it only loses context, never blocks the alert.
	if latest, err := d.predictions.Latest(ctx); err != nil {
		d.logger.WarnContext(ctx, "could not read latest prediction for alert context", "error", err)
	} else if latest != nil {
		payload.SignalAProbability = latest.SignalAProbability
		payload.SignalBProbability = latest.SignalBProbability
	}

	d.logger.InfoContext(ctx, "dispatching daily alert",
		"recipients", len(recipients),
		"average_probability", avg,
		"frost_level", string(payload.FrostLevel),
	)

	sendErrs := make([]error, len(recipients))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.concurrency)
	for i, phone := range recipients {
		i, phone := i, phone
		eg.Go(func() error {
			sendErrs[i] = d.sendOne(egCtx, payload, phone)
			return nil // per-recipient errors are captured, not propagated
		})
	}
	_ = eg.Wait()

	report := DispatchReport{}
	for i, phone := range recipients {
		if err := sendErrs[i]; err != nil {
			report.Failed = append(report.Failed, phone)
			if report.Errors == nil {
				report.Errors = make(map[string]string)
			}
			report.Errors[phone] = err.Error()
			d.record(types.JobOutcomeFailure)
		} else {
			report.Succeeded = append(report.Succeeded, phone)
			d.record(types.JobOutcomeSuccess)
		}
	}

	d.logger.InfoContext(ctx, "daily alert dispatched",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
	)
	return report, nil
}

// sendOne resolves the recipient's display name (best-effort) and performs
// a single send. A panic in the sender is contained here so one recipient
// cannot take down the fan-out.
func (d *Dispatcher) sendOne(ctx context.Context, payload types.Prediction, phone string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	displayName := ""
	if d.directory != nil {
		farmer, lookupErr := d.directory.FindByPhone(ctx, phone)
		if lookupErr != nil {
			d.logger.WarnContext(ctx, "recipient lookup failed, sending without personalization",
				"to", phone,
				"error", lookupErr,
			)
		} else if farmer != nil {
			displayName = farmer.DisplayName()
		}
	}

	if err := d.sender.Send(ctx, payload, phone, displayName); err != nil {
		d.logger.ErrorContext(ctx, "alert send failed",
			"to", phone,
			"error", err,
		)
		return err
	}
	return nil
}

func (d *Dispatcher) record(outcome types.JobOutcome) {
	if d.metrics != nil {
		d.metrics.RecordAlertSend(outcome)
	}
}
