package scheduler

import (
	"context"
	"time"

	"frostwatch/internal/types"
)

// Pipeline generates and stores one forecast.
type Pipeline interface {
	GeneratePrediction(ctx context.Context) (types.Prediction, error)
}

// CacheRefresher reloads the latest sensor reading.
type CacheRefresher interface {
	Refresh(ctx context.Context) error
}

// AlertSender pushes the daily summary to every registered recipient.
type AlertSender interface {
	SendDailyAlert(ctx context.Context) error
}

// Misfire grace windows per job. Forecast runs tolerate long outages
// because a late forecast is still useful; the alert is only worth sending
// near its scheduled time.
const (
	PredictionGrace   = 10 * time.Minute
	CacheRefreshGrace = 60 * time.Second
	DailyAlertGrace   = 30 * time.Second
)

// CacheRefreshInterval is how often the sensor cache is reloaded.
const CacheRefreshInterval = 5 * time.Minute

// predictionHours are the UTC wall-clock instants a forecast is generated,
// spread across the pre-dawn frost window and the daytime re-checks.
var predictionHours = []DailyTrigger{
	{Hour: 3, Minute: 0},
	{Hour: 10, Minute: 25},
	{Hour: 12, Minute: 0},
	{Hour: 16, Minute: 0},
}

// dailyAlertTrigger fires the recipient fan-out once the last forecast of
// the day is in.
var dailyAlertTrigger = DailyTrigger{Hour: 17, Minute: 0}

// RegisterStandardJobs installs the production trigger table: the forecast
// pipeline at fixed daily instants, the sensor cache refresh on a short
// interval, and the daily alert fan-out.
func RegisterStandardJobs(s *Scheduler, pipeline Pipeline, cache CacheRefresher, alerts AlertSender) {
	for _, trig := range predictionHours {
		s.Register("forecast_pipeline", trig, PredictionGrace, func(ctx context.Context) error {
			_, err := pipeline.GeneratePrediction(ctx)
			return err
		})
	}

	s.Register("sensor_cache_refresh", NewIntervalTrigger(CacheRefreshInterval), CacheRefreshGrace, func(ctx context.Context) error {
		return cache.Refresh(ctx)
	})

	s.Register("daily_alert", dailyAlertTrigger, DailyAlertGrace, func(ctx context.Context) error {
		return alerts.SendDailyAlert(ctx)
	})
}
