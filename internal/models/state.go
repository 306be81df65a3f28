package models

import "time"

// CheckerStateSchemaVersion is bumped when the persisted layout changes
// incompatibly. Loads merge over defaults, so additive changes do not need a
// bump.
const CheckerStateSchemaVersion = 1

// KnownCME remembers an Earth-directed CME seen on a previous tick, with the
// forecast values needed to detect upward revisions.
type KnownCME struct {
	ID               string     `json:"id"`
	PredictedKp      float64    `json:"predictedKp,omitempty"`
	PredictedArrival *time.Time `json:"predictedArrival,omitempty"`
}

// SentAlert is the persisted record of a dispatched alert.
type SentAlert struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Urgency       Urgency   `json:"urgency"`
	Title         string    `json:"title"`
	Timestamp     time.Time `json:"timestamp"`
	SourceEventID string    `json:"sourceEventId,omitempty"`
}

// SourceHealth tracks the last outcome per upstream feed.
type SourceHealth struct {
	OK          bool       `json:"ok"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// CheckerState is the persistent memory of the checker between ticks. It is
// loaded at the start of a tick, transformed, and atomically replaced at the
// end; it is only ever mutated while the run lock is held.
type CheckerState struct {
	SchemaVersion int        `json:"schemaVersion"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`

	LastKp          float64 `json:"lastKp"`
	LastBz          float64 `json:"lastBz"`
	LastWindSpeed   float64 `json:"lastWindSpeed"`
	LastWindDensity float64 `json:"lastWindDensity"`

	// Threshold flags reflect the most recent tick's observation; the
	// evaluator reads them one tick later to detect falling-edge recoveries.
	KpWasAbove5       bool `json:"kpWasAbove5"`
	KpWasAbove7       bool `json:"kpWasAbove7"`
	BzWasBelow10      bool `json:"bzWasBelow10"`
	BzWasBelow15      bool `json:"bzWasBelow15"`
	WindWasAbove600   bool `json:"windWasAbove600"`
	WindWasAbove700   bool `json:"windWasAbove700"`
	DensityWasAbove20 bool `json:"densityWasAbove20"`

	// Known-id sets are replaced wholesale each tick; novelty means "present
	// now, absent last tick".
	KnownCMEs            []KnownCME `json:"knownCMEs"`
	KnownFlareIDs        []string   `json:"knownFlareIds"`
	KnownHSSIDs          []string   `json:"knownHSSIds"`
	KnownRegionNumbers   []int      `json:"knownRegionNumbers"`
	KnownAlertProductIDs []string   `json:"knownAlertProductIds"`

	LastCooldowns map[string]time.Time    `json:"lastCooldowns"`
	AlertsSent    []SentAlert             `json:"alertsSent"`
	DataHealth    map[string]SourceHealth `json:"dataHealth"`
}

// DefaultCheckerState returns the state used on first run and as the merge
// base for tolerant loads.
func DefaultCheckerState() *CheckerState {
	return &CheckerState{
		SchemaVersion:        CheckerStateSchemaVersion,
		KnownCMEs:            []KnownCME{},
		KnownFlareIDs:        []string{},
		KnownHSSIDs:          []string{},
		KnownRegionNumbers:   []int{},
		KnownAlertProductIDs: []string{},
		LastCooldowns:        map[string]time.Time{},
		AlertsSent:           []SentAlert{},
		DataHealth:           map[string]SourceHealth{},
	}
}

// KnownCME looks up a remembered CME by id.
func (s *CheckerState) KnownCME(id string) (KnownCME, bool) {
	for _, k := range s.KnownCMEs {
		if k.ID == id {
			return k, true
		}
	}
	return KnownCME{}, false
}

// HasFlareID reports whether the flare id was seen on the previous tick.
func (s *CheckerState) HasFlareID(id string) bool {
	for _, v := range s.KnownFlareIDs {
		if v == id {
			return true
		}
	}
	return false
}

// HasHSSID reports whether the HSS id was seen on the previous tick.
func (s *CheckerState) HasHSSID(id string) bool {
	for _, v := range s.KnownHSSIDs {
		if v == id {
			return true
		}
	}
	return false
}

// HasRegionNumber reports whether the region was seen on the previous tick.
func (s *CheckerState) HasRegionNumber(n int) bool {
	for _, v := range s.KnownRegionNumbers {
		if v == n {
			return true
		}
	}
	return false
}
