package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"frostwatch/internal/types"
)

type stubPipeline struct {
	calls int
	err   error
}

func (p *stubPipeline) GeneratePrediction(ctx context.Context) (types.Prediction, error) {
	p.calls++
	return types.Prediction{ID: "pred_stub"}, p.err
}

type stubRefresher struct {
	calls int
}

func (r *stubRefresher) Refresh(ctx context.Context) error {
	r.calls++
	return nil
}

type stubAlertSender struct {
	calls int
}

func (a *stubAlertSender) SendDailyAlert(ctx context.Context) error {
	a.calls++
	return nil
}

func TestRegisterStandardJobs_TriggerTable(t *testing.T) {
	s := newTestScheduler(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), &recordingMetrics{})
	RegisterStandardJobs(s, &stubPipeline{}, &stubRefresher{}, &stubAlertSender{})

	if len(s.entries) != 6 {
		t.Fatalf("expected 6 registered entries, got %d", len(s.entries))
	}

	byName := map[string]int{}
	for _, e := range s.entries {
		byName[e.name]++
	}
	if byName["forecast_pipeline"] != 4 {
		t.Errorf("expected 4 forecast_pipeline entries, got %d", byName["forecast_pipeline"])
	}
	if byName["sensor_cache_refresh"] != 1 {
		t.Errorf("expected 1 sensor_cache_refresh entry, got %d", byName["sensor_cache_refresh"])
	}
	if byName["daily_alert"] != 1 {
		t.Errorf("expected 1 daily_alert entry, got %d", byName["daily_alert"])
	}

	for _, e := range s.entries {
		var want time.Duration
		switch e.name {
		case "forecast_pipeline":
			want = PredictionGrace
		case "sensor_cache_refresh":
			want = CacheRefreshGrace
		case "daily_alert":
			want = DailyAlertGrace
		}
		if e.grace != want {
			t.Errorf("entry %q: grace = %v, want %v", e.name, e.grace, want)
		}
	}
}

func TestRegisterStandardJobs_JobsInvokeDependencies(t *testing.T) {
	s := newTestScheduler(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), &recordingMetrics{})
	pipeline := &stubPipeline{}
	cache := &stubRefresher{}
	alerts := &stubAlertSender{}
	RegisterStandardJobs(s, pipeline, cache, alerts)

	ctx := context.Background()
	for _, e := range s.entries {
		if err := e.job(ctx); err != nil {
			t.Fatalf("entry %q: unexpected job error: %v", e.name, err)
		}
	}

	if pipeline.calls != 4 {
		t.Errorf("pipeline called %d times, want 4", pipeline.calls)
	}
	if cache.calls != 1 {
		t.Errorf("cache refresh called %d times, want 1", cache.calls)
	}
	if alerts.calls != 1 {
		t.Errorf("alert sender called %d times, want 1", alerts.calls)
	}
}

func TestRegisterStandardJobs_PipelineErrorPropagates(t *testing.T) {
	s := newTestScheduler(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), &recordingMetrics{})
	pipeline := &stubPipeline{err: errors.New("sensor offline")}
	RegisterStandardJobs(s, pipeline, &stubRefresher{}, &stubAlertSender{})

	for _, e := range s.entries {
		if e.name != "forecast_pipeline" {
			continue
		}
		if err := e.job(context.Background()); err == nil {
			t.Fatal("expected pipeline error to propagate through the job")
		}
		break
	}
}
