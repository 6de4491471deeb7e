package metrics

import "time"

// Split outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeDegraded      = "degraded"
	OutcomeUnfulfillable = "unfulfillable"
	OutcomeError         = "error"
	OutcomeCached        = "cached"
)

// Collector receives one observation per split request.
type Collector interface {
	RecordSplit(outcome string, duration time.Duration, nodes int, groups int)
}

// Nop discards every observation.
type Nop struct{}

var _ Collector = Nop{}

// NewNop returns a collector that records nothing.
func NewNop() Nop {
	return Nop{}
}

// RecordSplit discards the observation.
func (Nop) RecordSplit(string, time.Duration, int, int) {}
