package types

// FrostLevel is the three-way classification derived from a hybrid frost
// probability via fixed thresholds.
type FrostLevel string

const (
	FrostLevelNone     FrostLevel = "no_frost"
	FrostLevelPossible FrostLevel = "possible_frost"
	FrostLevelExpected FrostLevel = "frost_expected"
)

// ModelKind identifies which forecasting capability produced a probability.
type ModelKind string

const (
	ModelSignalA ModelKind = "signal_a"
	ModelSignalB ModelKind = "signal_b"
	ModelHybrid  ModelKind = "hybrid"
)

// ModelState is the lifecycle state of a forecasting capability.
// The transition is one-way: Untrained -> Trained.
type ModelState string

const (
	ModelUntrained ModelState = "untrained"
	ModelTrained   ModelState = "trained"
)

// JobOutcome labels the result of a scheduled job run for logging and metrics.
type JobOutcome string

const (
	JobOutcomeSuccess JobOutcome = "success"
	JobOutcomeFailure JobOutcome = "failure"
	JobOutcomeSkipped JobOutcome = "skipped"
)
