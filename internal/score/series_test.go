package score

import (
	"math"
	"testing"
	"time"
)

func TestSeriesPutAndValues(t *testing.T) {
	s := NewSeries(24, false)

	if err := s.Put(hourAt(2), 2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(hourAt(0), 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(hourAt(1), 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0.5, 1.0, 2.0}
	got := s.Values()
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSeriesPutIdempotent(t *testing.T) {
	s := NewSeries(24, false)
	s.Put(hourAt(1), 1.5)
	s.Put(hourAt(1), 1.5)

	if s.Len() != 1 {
		t.Errorf("replayed sample changed length: got %d, want 1", s.Len())
	}
	if got := s.Values()[0]; got != 1.5 {
		t.Errorf("stored value = %v, want 1.5", got)
	}
}

func TestSeriesPutOverwrites(t *testing.T) {
	s := NewSeries(24, false)
	s.Put(hourAt(1), 1.0)
	s.Put(hourAt(1), 2.0)

	if s.Len() != 1 {
		t.Fatalf("got %d samples, want 1", s.Len())
	}
	if got := s.Values()[0]; got != 2.0 {
		t.Errorf("stored value = %v, want 2.0", got)
	}
}

func TestSeriesRejectsNonFinite(t *testing.T) {
	s := NewSeries(24, false)
	s.Put(hourAt(1), 1.0)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.Put(hourAt(2), v); err == nil {
			t.Errorf("Put(%v) accepted non-finite value", v)
		}
	}
	if s.Len() != 1 {
		t.Errorf("series modified by rejected insert: len = %d, want 1", s.Len())
	}
}

func TestSeriesEviction(t *testing.T) {
	// Feeding hours 0..9 into a 5 hour window: the price flavour keeps 5
	// samples, the energy flavour one extra pre-window sample.
	tests := []struct {
		name         string
		keepPrevious bool
		wantLen      int
		wantOldest   float64
	}{
		{name: "price flavour", keepPrevious: false, wantLen: 5, wantOldest: 5},
		{name: "energy flavour", keepPrevious: true, wantLen: 6, wantOldest: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries(5, tt.keepPrevious)
			for h := 0; h < 10; h++ {
				now := hourAt(h).Add(8 * time.Minute)
				s.Evict(now)
				if err := s.Put(hourAt(h), float64(h)); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			if s.Len() != tt.wantLen {
				t.Fatalf("retained %d samples, want %d", s.Len(), tt.wantLen)
			}
			if got := s.Values()[0]; got != tt.wantOldest {
				t.Errorf("oldest retained value = %v, want %v", got, tt.wantOldest)
			}
		})
	}
}

func TestSeriesEvictExactEdge(t *testing.T) {
	// A sample exactly at now-window is outside the window.
	s := NewSeries(2, false)
	s.Put(hourAt(0), 1.0)
	s.Put(hourAt(1), 2.0)
	s.Put(hourAt(2), 3.0)

	s.Evict(hourAt(2))
	if s.Len() != 2 {
		t.Errorf("retained %d samples, want 2", s.Len())
	}
}
