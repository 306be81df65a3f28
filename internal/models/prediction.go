package models

import "time"

// PredictionStateSchemaVersion versions the persisted prediction blob.
const PredictionStateSchemaVersion = 1

// PredictionStatus is the lifecycle of a submitted prediction.
type PredictionStatus string

const (
	PredictionPending PredictionStatus = "pending"
	PredictionHit     PredictionStatus = "hit"
	PredictionMiss    PredictionStatus = "miss"
)

// MatchedEvent is a significant event observed inside a prediction's
// verification window.
type MatchedEvent struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Prediction is one user-submitted prognostic claim: "something significant
// will happen within the next verification window".
type Prediction struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	Note          string           `json:"note,omitempty"`
	Status        PredictionStatus `json:"status"`
	VerifiedAt    *time.Time       `json:"verifiedAt,omitempty"`
	WindowHours   int              `json:"windowHours"`
	WindowEnd     time.Time        `json:"windowEnd"`
	MatchedEvents []MatchedEvent   `json:"matchedEvents"`
}

// PredictionConfig carries the verification parameters and the offline
// computed base rate the scorecard tests against.
type PredictionConfig struct {
	VerificationWindowHours int        `json:"verificationWindowHours"`
	CooldownHours           int        `json:"cooldownHours"`
	MaxPredictions          int        `json:"maxPredictions"`
	BaseRate                *float64   `json:"baseRate,omitempty"`
	BaseRateComputedAt      *time.Time `json:"baseRateComputedAt,omitempty"`
	BaseRateSampleWindows   int        `json:"baseRateSampleWindows,omitempty"`
}

// PredictionState is the persisted prediction log plus its config.
type PredictionState struct {
	SchemaVersion int              `json:"schemaVersion"`
	Predictions   []Prediction     `json:"predictions"`
	Config        PredictionConfig `json:"config"`
}

// DefaultPredictionState returns the state used on first run and as the merge
// base for tolerant loads.
func DefaultPredictionState() *PredictionState {
	return &PredictionState{
		SchemaVersion: PredictionStateSchemaVersion,
		Predictions:   []Prediction{},
		Config: PredictionConfig{
			VerificationWindowHours: 48,
			CooldownHours:           6,
			MaxPredictions:          500,
		},
	}
}

// Scorecard summarizes prediction performance against the base rate.
type Scorecard struct {
	Hits             int      `json:"hits"`
	Misses           int      `json:"misses"`
	Pending          int      `json:"pending"`
	HitRate          *float64 `json:"hitRate,omitempty"`
	TotalDaysTracked int      `json:"totalDaysTracked"`
	PValue           *float64 `json:"pValue,omitempty"`
	BaseRate         *float64 `json:"baseRate,omitempty"`
}
