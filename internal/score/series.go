package score

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Sample is a timestamped numeric observation.
type Sample struct {
	Time  time.Time
	Value float64
}

// Series is a bounded, time-ordered sample log. Samples older than the
// configured window are evicted lazily at the start of each refresh. The
// energy-counter flavour additionally retains the newest sample at or before
// the window's left edge, so the oldest in-window consumption delta can
// still be derived.
type Series struct {
	window       time.Duration
	keepPrevious bool
	samples      []Sample
}

// NewSeries creates a rolling series spanning windowHours hours.
func NewSeries(windowHours int, keepPrevious bool) *Series {
	return &Series{
		window:       time.Duration(windowHours) * time.Hour,
		keepPrevious: keepPrevious,
	}
}

// Put inserts or overwrites the sample at t. Non-finite values are rejected
// and the series is left unmodified.
func (s *Series) Put(t time.Time, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrNonFiniteValue, v)
	}

	i := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Time.Before(t)
	})
	if i < len(s.samples) && s.samples[i].Time.Equal(t) {
		s.samples[i].Value = v
		return nil
	}

	s.samples = append(s.samples, Sample{})
	copy(s.samples[i+1:], s.samples[i:])
	s.samples[i] = Sample{Time: t, Value: v}
	return nil
}

// Evict drops samples at or before now minus the window. The energy flavour
// keeps the single newest of the dropped samples.
func (s *Series) Evict(now time.Time) {
	cutoff := now.Add(-s.window)

	// Index of the first retained in-window sample.
	i := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].Time.After(cutoff)
	})

	if s.keepPrevious && i > 0 {
		i--
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// Len returns the number of retained samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Values returns the retained values, oldest first.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.samples))
	for i, sm := range s.samples {
		out[i] = sm.Value
	}
	return out
}

// Samples returns a copy of the retained samples, oldest first.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Map returns the retained samples as a time-keyed map.
func (s *Series) Map() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(s.samples))
	for _, sm := range s.samples {
		out[sm.Time] = sm.Value
	}
	return out
}
