// Package types defines the core domain model for the FrostWatch platform:
// sensor readings, frost predictions, registered farmers, and the error and
// time primitives shared by every other package.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Reading is a single environmental observation produced by the sensor
// source. Readings are immutable once fetched; within a window they are
// ordered by timestamp ascending.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id"`
}

// Prediction is one frost forecast produced by the prediction pipeline.
// A Prediction is created once and never mutated; identity is by ID.
// CreatedAt is always UTC so "today" queries are well-defined regardless of
// the caller's timezone.
type Prediction struct {
	ID                 string     `json:"id"`
	Probability        float64    `json:"probability"`
	FrostLevel         FrostLevel `json:"frost_level"`
	ModelKind          ModelKind  `json:"model_kind"`
	CreatedAt          time.Time  `json:"created_at"`
	SignalAProbability *float64   `json:"signal_a_probability,omitempty"`
	SignalBProbability *float64   `json:"signal_b_probability,omitempty"`
}

// NewPredictionID returns a fresh opaque Prediction identifier.
func NewPredictionID() string {
	return "pred_" + uuid.NewString()
}

// CachedReading is the single-slot value held by the sensor cache: the most
// recently observed reading plus the instant it was cached. The slot is
// overwritten wholesale on each refresh.
type CachedReading struct {
	Reading     Reading   `json:"reading"`
	LastUpdated time.Time `json:"last_updated"`
}

// Farmer is a registered alert recipient.
type Farmer struct {
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"` // E.164, e.g. +573012592676
	LotAddress   string    `json:"lot_address"`
	RegisteredAt time.Time `json:"registered_at"`
}

// DisplayName returns the farmer's name for message personalization, or ""
// when no name is recorded.
func (f Farmer) DisplayName() string {
	switch {
	case f.FirstName != "" && f.LastName != "":
		return f.FirstName + " " + f.LastName
	case f.FirstName != "":
		return f.FirstName
	default:
		return f.LastName
	}
}
