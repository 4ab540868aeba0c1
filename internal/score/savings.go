package score

import (
	"math"
	"time"
)

// SavingsEstimator derives the potential savings for the current local day:
// the difference between the actual cumulative cost and the cost of an ideal
// allocation concentrating the same total energy in the cheapest hours. It
// also tracks the running cost as an expanding mean/max/min statistic.
type SavingsEstimator struct {
	energyToday float64
	potential   float64
	known       bool

	costSum   float64
	costCount int
	costMax   float64
	costMin   float64

	prices      map[time.Time]float64
	lastEnergy  map[time.Time]float64
	quality     float64
	lastUpdated *time.Time
}

// NewSavingsEstimator creates an estimator with no data yet.
func NewSavingsEstimator() *SavingsEstimator {
	return &SavingsEstimator{
		prices:     map[time.Time]float64{},
		lastEnergy: map[time.Time]float64{},
	}
}

// Update folds in one refresh: the per-hour delta with its price, the
// running cost sampled from the cost accumulator, and the score quality for
// the attribute bag. A date change resets the day's statistics first.
func (s *SavingsEstimator) Update(delta, price, runningCost, quality float64, now time.Time) {
	if s.lastUpdated != nil && !sameLocalDay(*s.lastUpdated, now) {
		s.energyToday = 0
		s.costSum = 0
		s.costCount = 0
		s.costMax = 0
		s.costMin = 0
		s.potential = 0
		s.prices = map[time.Time]float64{}
		s.lastEnergy = map[time.Time]float64{}
	}

	hour := hourKey(now)
	s.energyToday = round2(s.energyToday + delta)
	s.prices[hour] = price
	s.lastEnergy[hour] = delta
	s.quality = quality

	if s.costCount == 0 {
		s.costMax = runningCost
		s.costMin = runningCost
	} else {
		s.costMax = math.Max(s.costMax, runningCost)
		s.costMin = math.Min(s.costMin, runningCost)
	}
	s.costSum += runningCost
	s.costCount++

	s.potential = round2(runningCost - s.idealCost())
	s.known = true
	s.lastUpdated = &now
}

// idealCost prices the day's total energy as if consumption had followed the
// inverted-price weighting, concentrated in the cheapest available hours.
func (s *SavingsEstimator) idealCost() float64 {
	weights := NormalizePrices(s.prices)
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}

	cost := 0.0
	for t, w := range weights {
		cost += (w / total) * s.energyToday * s.prices[t]
	}
	return cost
}

// SavingsSnapshot is the externally visible state of the savings sensor.
type SavingsSnapshot struct {
	PotentialSavings  float64            `json:"potential_savings"`
	Known             bool               `json:"known"`
	AverageCost       float64            `json:"average_cost"`
	MaximumCost       float64            `json:"maximum_cost"`
	MinimumCost       float64            `json:"minimum_cost"`
	EnergyToday       float64            `json:"energy_today"`
	LastUpdatedEnergy map[string]float64 `json:"last_updated_energy"`
	Price             map[string]float64 `json:"price"`
	Quality           float64            `json:"quality"`
	LastUpdated       *time.Time         `json:"last_updated"`
}

// Snapshot returns the current state and attribute bag.
func (s *SavingsEstimator) Snapshot() SavingsSnapshot {
	snap := SavingsSnapshot{
		PotentialSavings:  s.potential,
		Known:             s.known,
		MaximumCost:       s.costMax,
		MinimumCost:       s.costMin,
		EnergyToday:       s.energyToday,
		LastUpdatedEnergy: isoKeyed(s.lastEnergy),
		Price:             isoKeyed(s.prices),
		Quality:           s.quality,
		LastUpdated:       s.lastUpdated,
	}
	if s.costCount > 0 {
		snap.AverageCost = round2(s.costSum / float64(s.costCount))
	}
	return snap
}

// Restore reinstates a persisted savings snapshot.
func (s *SavingsEstimator) Restore(potential, energyToday float64, lastUpdated *time.Time) {
	s.potential = potential
	s.energyToday = energyToday
	s.known = true
	s.lastUpdated = lastUpdated
}
