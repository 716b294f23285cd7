package search

import (
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// Rejection explains why a candidate connection was dropped
type Rejection string

const (
	RejectNone       Rejection = ""
	RejectMCT        Rejection = "below_minimum_connection_time"
	RejectMaxLayover Rejection = "above_maximum_layover"
	RejectLoop       Rejection = "airport_revisited"
	RejectMismatch   Rejection = "origin_mismatch"
)

// Validator encodes the connection feasibility rules. It is a pure
// value: no I/O, safe for concurrent use from every expansion branch.
type Validator struct {
	airports         map[string]models.Airport
	mctDomestic      time.Duration
	mctInternational time.Duration
	maxLayover       time.Duration
}

// NewValidator builds a validator over the airport reference data.
// Airports carry optional per-airport MCT overrides and an optional
// tier marker choosing between the two configured defaults.
func NewValidator(airports map[string]models.Airport, cfg Config) Validator {
	cfg = cfg.normalize()
	return Validator{
		airports:         airports,
		mctDomestic:      cfg.MCTDomestic,
		mctInternational: cfg.MCTInternational,
		maxLayover:       cfg.MaxLayover,
	}
}

// MCT returns the minimum connection time at an airport. It depends on
// the connection airport alone, never on where the next leg goes. A
// per-airport override wins; otherwise the airport's tier marker picks
// the international default, and anything else, including airports
// missing from the reference data, gets the domestic default.
func (v Validator) MCT(at string) time.Duration {
	ap, ok := v.airports[at]
	if !ok {
		return v.mctDomestic
	}
	if ap.MCTMinutes > 0 {
		return time.Duration(ap.MCTMinutes) * time.Minute
	}
	if ap.MCTTier == models.MCTTierInternational {
		return v.mctInternational
	}
	return v.mctDomestic
}

// MaxLayover returns the configured maximum gap between legs
func (v Validator) MaxLayover() time.Duration {
	return v.maxLayover
}

// Feasible checks whether next can follow prev in a chain. All
// arithmetic is on UTC instants; local time is never compared.
func (v Validator) Feasible(prev, next models.Leg) (bool, Rejection) {
	if next.Origin != prev.Destination {
		return false, RejectMismatch
	}
	gap := next.DepartureUTC.Sub(prev.ArrivalUTC)
	if gap < v.MCT(prev.Destination) {
		return false, RejectMCT
	}
	if gap > v.maxLayover {
		return false, RejectMaxLayover
	}
	return true, RejectNone
}
