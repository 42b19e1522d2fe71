package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"frostwatch/internal/types"
)

// --- Mocks ---

type mockSensorSource struct {
	readings []types.Reading
	err      error

	fetchCalls  int
	lastWindow  types.TimeWindow
}

func (m *mockSensorSource) FetchReadings(_ context.Context, window types.TimeWindow) ([]types.Reading, error) {
	m.fetchCalls++
	m.lastWindow = window
	return m.readings, m.err
}

type mockModel struct {
	kind        types.ModelKind
	trainErr    error
	predictErr  error
	probability float64

	trained bool
}

func (m *mockModel) Kind() types.ModelKind { return m.kind }

func (m *mockModel) State() types.ModelState {
	if m.trained {
		return types.ModelTrained
	}
	return types.ModelUntrained
}

func (m *mockModel) Train(_ context.Context, _ []types.Reading) error {
	if m.trainErr != nil {
		return m.trainErr
	}
	m.trained = true
	return nil
}

func (m *mockModel) PredictProbability(_ context.Context, _ []types.Reading) (float64, error) {
	if m.predictErr != nil {
		return 0, m.predictErr
	}
	return m.probability, nil
}

type mockRepo struct {
	saved   []types.Prediction
	saveErr error
}

func (m *mockRepo) Save(_ context.Context, p types.Prediction) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockRepo) Latest(_ context.Context) (*types.Prediction, error) { return nil, nil }

func (m *mockRepo) PredictionsOnDate(_ context.Context, _ time.Time) ([]types.Prediction, error) {
	return nil, nil
}

func (m *mockRepo) TodaysPredictions(_ context.Context) ([]types.Prediction, error) {
	return nil, nil
}

func (m *mockRepo) DailyAverageProbability(_ context.Context) (float64, bool, error) {
	return 0, false, nil
}

// --- GeneratePrediction Tests ---

func newTestGenerator(source *mockSensorSource, repo *mockRepo, a, b types.ForecastModel) *Generator {
	return NewGenerator(GeneratorConfig{
		Sensors: source,
		Repo:    repo,
		SignalA: a,
		SignalB: b,
		Clock:   fixedClock{now: testNow},
	})
}

func TestGeneratePrediction_BlendsAndSaves(t *testing.T) {
	source := &mockSensorSource{readings: testReadings(5, 3, 4)}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA, probability: 0.5}
	b := &mockModel{kind: types.ModelSignalB, probability: 1.0}

	p, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(p.Probability-0.8) > 1e-9 {
		t.Errorf("Probability = %v, want 0.8", p.Probability)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved %d predictions, want 1", len(repo.saved))
	}
	if repo.saved[0].ID != p.ID {
		t.Errorf("saved prediction ID %s does not match returned %s", repo.saved[0].ID, p.ID)
	}
	if !a.trained || !b.trained {
		t.Error("both models should have been trained")
	}

	// 10-day default fetch window ending at the clock's now.
	if !source.lastWindow.End.Equal(testNow) {
		t.Errorf("window end = %v, want %v", source.lastWindow.End, testNow)
	}
	if !source.lastWindow.Start.Equal(testNow.AddDate(0, 0, -DefaultWindowDays)) {
		t.Errorf("window start = %v, want %v days back", source.lastWindow.Start, DefaultWindowDays)
	}
}

func TestGeneratePrediction_EmptyWindowFails(t *testing.T) {
	source := &mockSensorSource{}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA, probability: 0.5}
	b := &mockModel{kind: types.ModelSignalB, probability: 0.5}

	_, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background())
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeSensorNoData {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrCodeSensorNoData)
	}
	if len(repo.saved) != 0 {
		t.Error("nothing should be saved on an empty window")
	}
}

func TestGeneratePrediction_FetchErrorFails(t *testing.T) {
	source := &mockSensorSource{err: errors.New("upstream down")}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA}
	b := &mockModel{kind: types.ModelSignalB}

	if _, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background()); err == nil {
		t.Error("expected fetch error to fail the run")
	}
}

func TestGeneratePrediction_FailedSignalUsesNeutral(t *testing.T) {
	source := &mockSensorSource{readings: testReadings(5)}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA, trainErr: errors.New("training blew up")}
	b := &mockModel{kind: types.ModelSignalB, probability: 1.0}

	p, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.4*0.5 (neutral) + 0.6*1.0 = 0.8
	if math.Abs(p.Probability-0.8) > 1e-9 {
		t.Errorf("Probability = %v, want 0.8 with neutral signal A", p.Probability)
	}
}

func TestGeneratePrediction_BothSignalsFailedStillPredicts(t *testing.T) {
	source := &mockSensorSource{readings: testReadings(5)}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA, predictErr: errors.New("boom")}
	b := &mockModel{kind: types.ModelSignalB, trainErr: errors.New("boom")}

	p, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(p.Probability-NeutralProbability) > 1e-9 {
		t.Errorf("Probability = %v, want neutral %v", p.Probability, NeutralProbability)
	}
	if p.FrostLevel != types.FrostLevelPossible {
		t.Errorf("FrostLevel = %s, want %s", p.FrostLevel, types.FrostLevelPossible)
	}
}

func TestGeneratePrediction_OutOfRangeModelOutputClamped(t *testing.T) {
	source := &mockSensorSource{readings: testReadings(5)}
	repo := &mockRepo{}
	a := &mockModel{kind: types.ModelSignalA, probability: 1.8}
	b := &mockModel{kind: types.ModelSignalB, probability: -0.4}

	p, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Clamped to 1.0 and 0.0: 0.4*1 + 0.6*0 = 0.4
	if math.Abs(p.Probability-0.4) > 1e-9 {
		t.Errorf("Probability = %v, want 0.4 after clamping", p.Probability)
	}
}

func TestGeneratePrediction_SaveErrorFails(t *testing.T) {
	source := &mockSensorSource{readings: testReadings(5)}
	repo := &mockRepo{saveErr: errors.New("ledger unavailable")}
	a := &mockModel{kind: types.ModelSignalA, probability: 0.5}
	b := &mockModel{kind: types.ModelSignalB, probability: 0.5}

	if _, err := newTestGenerator(source, repo, a, b).GeneratePrediction(context.Background()); err == nil {
		t.Error("expected save error to fail the run")
	}
}
