// Package sensors implements the sensor-value cache: a single slot holding
// the most recently observed reading, refreshed periodically by the
// scheduler and on demand on a cache miss.
package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"frostwatch/internal/types"
)

// DefaultRefreshWindow is the trailing window fetched on each refresh. An
// hour is enough to contain the latest reading at the sensors' uplink rate.
const DefaultRefreshWindow = time.Hour

// RefreshMetrics is the narrow metrics interface the cache records to.
type RefreshMetrics interface {
	RecordCacheRefresh(outcome types.JobOutcome)
}

// Cache holds the most recently observed reading. The slot is overwritten
// wholesale on each successful refresh and never reverts to empty: when the
// upstream briefly has nothing to give, the stale value is kept (stale data
// is preferred over no data).
//
// Concurrent refreshes (the recurring job racing an on-demand cache miss)
// are collapsed through singleflight; the slot itself is last-writer-wins,
// which is acceptable since results within a short window are
// near-equivalent.
type Cache struct {
	source  types.SensorSource
	window  time.Duration
	clock   types.Clock
	logger  *slog.Logger
	metrics RefreshMetrics

	group singleflight.Group

	mu   sync.RWMutex
	slot *types.CachedReading
}

// CacheConfig holds the dependencies for creating a Cache.
type CacheConfig struct {
	Source  types.SensorSource
	Window  time.Duration
	Clock   types.Clock
	Logger  *slog.Logger
	Metrics RefreshMetrics // optional
}

// NewCache creates an empty Cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRefreshWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		source:  cfg.Source,
		window:  cfg.Window,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Refresh fetches the trailing window from the sensor source and overwrites
// the slot with the most recent reading in the result. An empty result
// leaves the previous value untouched and is not an error. Back-to-back
// concurrent calls share a single upstream fetch.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Cache) refresh(ctx context.Context) error {
	now := c.clock.Now()
	window, err := types.NewTimeWindow(now.Add(-c.window), now)
	if err != nil {
		return err
	}

	readings, err := c.source.FetchReadings(ctx, window)
	if err != nil {
		c.record(types.JobOutcomeFailure)
		return fmt.Errorf("refreshing sensor cache: %w", err)
	}
	if len(readings) == 0 {
		// Fail-soft: keep whatever we had.
		c.record(types.JobOutcomeSkipped)
		c.logger.WarnContext(ctx, "no sensor readings in refresh window, keeping cached value",
			"window", c.window.String(),
		)
		return nil
	}

	// Readings arrive ordered by timestamp ascending; take the last one, but
	// scan defensively in case the source violates ordering.
	latest := readings[len(readings)-1]
	for _, r := range readings {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}

	c.mu.Lock()
	c.slot = &types.CachedReading{Reading: latest, LastUpdated: now}
	c.mu.Unlock()

	c.record(types.JobOutcomeSuccess)
	c.logger.InfoContext(ctx, "sensor cache refreshed",
		"device_id", latest.DeviceID,
		"temperature", latest.Temperature,
		"humidity", latest.Humidity,
		"wind_speed", latest.WindSpeed,
		"reading_at", latest.Timestamp.Format(time.RFC3339),
	)
	return nil
}

// GetLatest returns the cached reading. On a cold cache it synchronously
// triggers exactly one refresh before answering; if the cache is still empty
// after that, it fails rather than fabricating a value.
func (c *Cache) GetLatest(ctx context.Context) (types.CachedReading, error) {
	c.mu.RLock()
	slot := c.slot
	c.mu.RUnlock()

	if slot == nil {
		if err := c.Refresh(ctx); err != nil {
			return types.CachedReading{}, err
		}
		c.mu.RLock()
		slot = c.slot
		c.mu.RUnlock()
	}

	if slot == nil {
		return types.CachedReading{}, types.NewAppError(
			types.ErrCodeSensorNoData,
			"no sensor data available; the upstream source may be unreachable or empty",
			nil,
		)
	}
	return *slot, nil
}

func (c *Cache) record(outcome types.JobOutcome) {
	if c.metrics != nil {
		c.metrics.RecordCacheRefresh(outcome)
	}
}
