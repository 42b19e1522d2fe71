// Package forecast implements the prediction pipeline for the FrostWatch
// platform: it fetches a window of sensor readings, runs the two forecasting
// capabilities, blends their probabilities into a hybrid frost prediction,
// and appends the result to the prediction ledger.
package forecast

import (
	"fmt"

	"frostwatch/internal/types"
)

// Blend weights for the two signals. Fixed by policy: changing them is a
// versioned decision, not a runtime parameter.
const (
	SignalAWeight = 0.4
	SignalBWeight = 0.6
)

// Classification thresholds applied to the hybrid probability. The
// boundaries themselves classify as PossibleFrost.
const (
	FrostExpectedThreshold = 0.70
	NoFrostThreshold       = 0.30
)

// NeutralProbability is substituted for a signal whose capability failed
// internally, so a single model failure degrades the forecast instead of
// aborting it.
const NeutralProbability = 0.5

// ClassifyProbability maps a hybrid probability to a FrostLevel.
// It is a pure, deterministic function of the probability.
func ClassifyProbability(p float64) types.FrostLevel {
	switch {
	case p > FrostExpectedThreshold:
		return types.FrostLevelExpected
	case p < NoFrostThreshold:
		return types.FrostLevelNone
	default:
		return types.FrostLevelPossible
	}
}

// Clamp forces a model output into [0,1]. Model outputs are clamped before
// blending so a misbehaving capability cannot push the hybrid out of range.
func Clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Blender combines two probability signals into a hybrid Prediction.
// It performs no I/O.
type Blender struct {
	clock types.Clock
}

// NewBlender creates a Blender stamping predictions with the given clock.
// A nil clock falls back to the real UTC clock.
func NewBlender(clock types.Clock) *Blender {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Blender{clock: clock}
}

// Blend combines signalA and signalB into a hybrid Prediction carrying both
// input signals for auditability. Inputs outside [0,1] fail with a
// validation error: callers are responsible for clamping model outputs
// before blending.
func (b *Blender) Blend(signalA, signalB float64) (types.Prediction, error) {
	if signalA < 0 || signalA > 1 {
		return types.Prediction{}, types.NewAppError(
			types.ErrCodeValidationInvalidSignal,
			fmt.Sprintf("signal A probability %v outside [0,1]", signalA),
			nil,
		)
	}
	if signalB < 0 || signalB > 1 {
		return types.Prediction{}, types.NewAppError(
			types.ErrCodeValidationInvalidSignal,
			fmt.Sprintf("signal B probability %v outside [0,1]", signalB),
			nil,
		)
	}

	hybrid := SignalAWeight*signalA + SignalBWeight*signalB

	a, bb := signalA, signalB
	return types.Prediction{
		ID:                 types.NewPredictionID(),
		Probability:        hybrid,
		FrostLevel:         ClassifyProbability(hybrid),
		ModelKind:          types.ModelHybrid,
		CreatedAt:          b.clock.Now().UTC(),
		SignalAProbability: &a,
		SignalBProbability: &bb,
	}, nil
}
