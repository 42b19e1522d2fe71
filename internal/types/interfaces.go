package types

import (
	"context"
	"time"
)

// SensorSource retrieves environmental readings from the upstream sensor
// platform. Implementations must return readings ordered by timestamp
// ascending; an empty result is not an error.
type SensorSource interface {
	FetchReadings(ctx context.Context, window TimeWindow) ([]Reading, error)
}

// ForecastModel is an opaque forecasting capability. Train is idempotent: a
// model that has already trained in-process treats Train as a no-op
// (Untrained -> Trained, one-way). PredictProbability returns a frost
// probability in [0,1].
//
// Callers must not issue concurrent Train/PredictProbability calls against
// the same instance; the pipeline serializes access per instance.
type ForecastModel interface {
	Kind() ModelKind
	State() ModelState
	Train(ctx context.Context, readings []Reading) error
	PredictProbability(ctx context.Context, readings []Reading) (float64, error)
}

// PredictionRepository is the append-only prediction ledger.
//
// Save never overwrites. Latest returns the prediction with the maximum
// CreatedAt, nil when the ledger is empty; ties on equal timestamps resolve
// to the last inserted prediction. PredictionsOnDate selects by the UTC
// calendar date of CreatedAt, in insertion order. DailyAverageProbability
// is the plain unweighted mean over today's predictions; its second return
// value is false when no prediction exists for the current UTC date.
type PredictionRepository interface {
	Save(ctx context.Context, p Prediction) error
	Latest(ctx context.Context) (*Prediction, error)
	PredictionsOnDate(ctx context.Context, date time.Time) ([]Prediction, error)
	TodaysPredictions(ctx context.Context) ([]Prediction, error)
	DailyAverageProbability(ctx context.Context) (float64, bool, error)
}

// FarmerDirectory is the recipient directory consumed by the alert
// dispatcher and the farmer HTTP surface.
type FarmerDirectory interface {
	Register(ctx context.Context, f Farmer) error
	ListAll(ctx context.Context) ([]Farmer, error)
	ListAllPhoneNumbers(ctx context.Context) ([]string, error)
	FindByPhone(ctx context.Context, phoneNumber string) (*Farmer, error)
}

// NotificationSender delivers one alert message to one recipient.
// displayName may be empty when personalization is unavailable.
type NotificationSender interface {
	Send(ctx context.Context, p Prediction, phoneNumber, displayName string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
