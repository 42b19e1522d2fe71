package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"frostwatch/internal/types"
)

func testReadings(temps ...float64) []types.Reading {
	base := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	readings := make([]types.Reading, len(temps))
	for i, temp := range temps {
		readings[i] = types.Reading{
			Temperature: temp,
			Humidity:    60,
			WindSpeed:   1,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			DeviceID:    "nodo-lora-ud-1",
		}
	}
	return readings
}

func TestBaselineModel_PredictBeforeTrain(t *testing.T) {
	m := NewBaselineModel(types.ModelSignalA, SignalACoefficients)

	if m.State() != types.ModelUntrained {
		t.Fatalf("initial state = %s, want %s", m.State(), types.ModelUntrained)
	}
	_, err := m.PredictProbability(context.Background(), testReadings(5))
	if !errors.Is(err, ErrUntrained) {
		t.Errorf("expected ErrUntrained, got %v", err)
	}
}

func TestBaselineModel_TrainTransitionsOnce(t *testing.T) {
	m := NewBaselineModel(types.ModelSignalA, SignalACoefficients)

	if err := m.Train(context.Background(), testReadings(8, 2, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != types.ModelTrained {
		t.Fatalf("state = %s, want %s", m.State(), types.ModelTrained)
	}
	if m.baseline != 2 {
		t.Errorf("baseline = %v, want minimum temperature 2", m.baseline)
	}

	// Retraining with a colder window is a no-op.
	if err := m.Train(context.Background(), testReadings(-10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.baseline != 2 {
		t.Errorf("baseline changed on retrain: %v", m.baseline)
	}
}

func TestBaselineModel_TrainEmptyWindow(t *testing.T) {
	m := NewBaselineModel(types.ModelSignalA, SignalACoefficients)
	if err := m.Train(context.Background(), nil); err == nil {
		t.Error("expected error training on empty window")
	}
}

func TestBaselineModel_ColdNightScoresHigherThanWarm(t *testing.T) {
	ctx := context.Background()

	cold := NewBaselineModel(types.ModelSignalA, SignalACoefficients)
	if err := cold.Train(ctx, testReadings(5, -2, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pCold, err := cold.PredictProbability(ctx, testReadings(5, -2, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	warm := NewBaselineModel(types.ModelSignalA, SignalACoefficients)
	if err := warm.Train(ctx, testReadings(22, 18, 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pWarm, err := warm.PredictProbability(ctx, testReadings(22, 18, 21))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pCold <= pWarm {
		t.Errorf("cold night probability %v not above warm night %v", pCold, pWarm)
	}
	for _, p := range []float64{pCold, pWarm} {
		if p < 0 || p > 1 {
			t.Errorf("probability %v outside [0,1]", p)
		}
	}
}

func TestBaselineModel_CancelledContext(t *testing.T) {
	m := NewBaselineModel(types.ModelSignalB, SignalBCoefficients)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Train(ctx, testReadings(5)); err == nil {
		t.Error("expected error training with cancelled context")
	}
}
