package score

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

var (
	ErrSourceUnavailable   = errors.New("source state is unavailable or unknown")
	ErrNonNumericReading   = errors.New("source state is not a finite number")
	ErrInvalidSemantics    = errors.New("energy counter semantics cannot be trusted")
	ErrNonFiniteValue      = errors.New("value is not finite")
	ErrInvalidRollingHours = errors.New("rolling_hours must be between 2 and 168")
	ErrInvalidThreshold    = errors.New("energy_threshold must be between 0 and 1")
)

// States an external entity reports when it has no numeric value.
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// Semantics is the accounting behaviour declared by an energy counter.
// Only ever-increasing counters, or totals with an explicit reset marker,
// allow safe derivation of consumption deltas.
type Semantics string

const (
	SemanticsNone            Semantics = ""
	SemanticsMeasurement     Semantics = "measurement"
	SemanticsTotal           Semantics = "total"
	SemanticsTotalIncreasing Semantics = "total_increasing"
)

// Reading is one raw observation pulled from an external entity.
type Reading struct {
	State     string
	Semantics Semantics
	LastReset *time.Time
}

// Value parses the reading into a finite float rounded to 2 decimals.
func (r Reading) Value() (float64, error) {
	if r.State == StateUnavailable || r.State == StateUnknown {
		return 0, fmt.Errorf("%w: %s", ErrSourceUnavailable, r.State)
	}
	v, err := strconv.ParseFloat(r.State, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonNumericReading, r.State)
	}
	return round2(v), nil
}

// NumericReading builds a Reading from an already-resolved number.
func NumericReading(v float64) Reading {
	return Reading{State: strconv.FormatFloat(v, 'f', -1, 64)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// hourKey truncates a timestamp to the start of its local hour.
func hourKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// sameLocalDay reports whether two timestamps fall on the same calendar day.
func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// isoKeyed converts a time-keyed map to an RFC3339-keyed map for attributes.
func isoKeyed(m map[time.Time]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for t, v := range m {
		out[t.Format(time.RFC3339)] = v
	}
	return out
}
