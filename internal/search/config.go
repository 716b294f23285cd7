package search

import "time"

// Config holds the engine tunables. Every numeric bound the search
// depends on lives here rather than as a hidden constant; defaults
// mirror the documented configuration surface.
type Config struct {
	// Connection feasibility
	MCTDomestic      time.Duration // min gap when the connection stays in-country
	MCTInternational time.Duration // min gap when the connection crosses a border
	MaxLayover       time.Duration // max gap between consecutive legs

	// Expansion bounds
	FanoutLimit      int           // legs fetched per origin per expansion step
	ExpansionCeiling int           // chain extensions attempted per search
	PruneMargin      time.Duration // slack over best-known total duration
	ExpandWorkers    int           // concurrent frontier branches per depth

	// Fare resolution
	FareFreshness     time.Duration // max age of a cached fare snapshot
	FareLookupTimeout time.Duration // budget for one live fare lookup

	// Request defaults and caps
	Deadline          time.Duration // whole-pipeline budget when caller sets none
	DefaultMaxResults int
	MaxResultsCap     int
	DefaultMaxHops    int
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MCTDomestic:       45 * time.Minute,
		MCTInternational:  90 * time.Minute,
		MaxLayover:        12 * time.Hour,
		FanoutLimit:       20,
		ExpansionCeiling:  5000,
		PruneMargin:       2 * time.Hour,
		ExpandWorkers:     8,
		FareFreshness:     10 * time.Minute,
		FareLookupTimeout: 500 * time.Millisecond,
		Deadline:          2 * time.Second,
		DefaultMaxResults: 50,
		MaxResultsCap:     100,
		DefaultMaxHops:    2,
	}
}

// normalize fills zero fields with defaults so a partially populated
// Config is still safe to run with
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MCTDomestic <= 0 {
		c.MCTDomestic = d.MCTDomestic
	}
	if c.MCTInternational <= 0 {
		c.MCTInternational = d.MCTInternational
	}
	if c.MaxLayover <= 0 {
		c.MaxLayover = d.MaxLayover
	}
	if c.FanoutLimit <= 0 {
		c.FanoutLimit = d.FanoutLimit
	}
	if c.ExpansionCeiling <= 0 {
		c.ExpansionCeiling = d.ExpansionCeiling
	}
	if c.PruneMargin <= 0 {
		c.PruneMargin = d.PruneMargin
	}
	if c.ExpandWorkers <= 0 {
		c.ExpandWorkers = d.ExpandWorkers
	}
	if c.FareFreshness <= 0 {
		c.FareFreshness = d.FareFreshness
	}
	if c.FareLookupTimeout <= 0 {
		c.FareLookupTimeout = d.FareLookupTimeout
	}
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	if c.DefaultMaxResults <= 0 {
		c.DefaultMaxResults = d.DefaultMaxResults
	}
	if c.MaxResultsCap <= 0 {
		c.MaxResultsCap = d.MaxResultsCap
	}
	if c.DefaultMaxHops <= 0 {
		c.DefaultMaxHops = d.DefaultMaxHops
	}
	return c
}
