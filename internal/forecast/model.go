package forecast

import (
	"context"
	"errors"
	"math"
	"sync"

	"frostwatch/internal/types"
)

// ErrUntrained is returned by PredictProbability when the model has not been
// trained in-process yet.
var ErrUntrained = errors.New("model has not been trained")

// BaselineCoefficients tune a BaselineModel. The two production signals use
// different coefficient sets so their outputs remain independent.
type BaselineCoefficients struct {
	// FrostTemp is the temperature (Celsius) at which frost probability
	// crosses 0.5, all else being neutral.
	FrostTemp float64
	// TempScale controls how sharply probability rises as the overnight
	// minimum approaches FrostTemp.
	TempScale float64
	// HumidityWeight shifts probability up with high relative humidity.
	HumidityWeight float64
	// WindWeight shifts probability down with wind (mixing prevents
	// radiative frost).
	WindWeight float64
}

// SignalACoefficients parameterize the conservative signal.
var SignalACoefficients = BaselineCoefficients{
	FrostTemp:      2.0,
	TempScale:      2.5,
	HumidityWeight: 0.10,
	WindWeight:     0.05,
}

// SignalBCoefficients parameterize the aggressive signal.
var SignalBCoefficients = BaselineCoefficients{
	FrostTemp:      3.0,
	TempScale:      1.8,
	HumidityWeight: 0.15,
	WindWeight:     0.08,
}

// BaselineModel is a deterministic statistical forecasting capability. It
// backs local runs and tests; the capability boundary (types.ForecastModel)
// keeps the pipeline agnostic to the real model internals.
//
// Train computes the historical minimum-temperature baseline from the
// reading window; the transition Untrained -> Trained happens exactly once
// per process and repeated Train calls are no-ops. The explicit state
// machine replaces a hidden "already trained" flag so callers can reason
// about idempotent re-invocation.
type BaselineModel struct {
	kind   types.ModelKind
	coeffs BaselineCoefficients

	mu       sync.Mutex
	state    types.ModelState
	baseline float64 // trained historical minimum temperature
}

// NewBaselineModel creates an untrained BaselineModel for the given signal.
func NewBaselineModel(kind types.ModelKind, coeffs BaselineCoefficients) *BaselineModel {
	return &BaselineModel{
		kind:   kind,
		coeffs: coeffs,
		state:  types.ModelUntrained,
	}
}

// Kind returns which signal this model produces.
func (m *BaselineModel) Kind() types.ModelKind { return m.kind }

// State returns the model lifecycle state.
func (m *BaselineModel) State() types.ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Train fits the baseline from the reading window. Idempotent: once trained,
// subsequent calls return immediately.
func (m *BaselineModel) Train(ctx context.Context, readings []types.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == types.ModelTrained {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(readings) == 0 {
		return errors.New("cannot train on an empty reading window")
	}

	minTemp := readings[0].Temperature
	for _, r := range readings[1:] {
		if r.Temperature < minTemp {
			minTemp = r.Temperature
		}
	}

	m.baseline = minTemp
	m.state = types.ModelTrained
	return nil
}

// PredictProbability estimates the frost probability for the coming night
// from the most recent readings in the window. The model must be trained.
func (m *BaselineModel) PredictProbability(ctx context.Context, readings []types.Reading) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != types.ModelTrained {
		return 0, ErrUntrained
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, errors.New("cannot predict on an empty reading window")
	}

	latest := readings[len(readings)-1]

	// Expected overnight minimum: midpoint of the latest observation and the
	// trained historical minimum.
	expectedMin := (latest.Temperature + m.baseline) / 2

	// Logistic curve over the temperature deficit, adjusted by humidity
	// (promotes frost) and wind (suppresses radiative frost).
	x := (m.coeffs.FrostTemp - expectedMin) / m.coeffs.TempScale
	p := 1 / (1 + math.Exp(-x))
	p += m.coeffs.HumidityWeight * (latest.Humidity/100 - 0.5)
	p -= m.coeffs.WindWeight * latest.WindSpeed

	return Clamp(p), nil
}
