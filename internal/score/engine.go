package score

import (
	"fmt"
	"log"
	"math"
	"time"
)

const (
	// DefaultRollingHours is the trailing window applied when none is configured.
	DefaultRollingHours = 24

	MinRollingHours = 2
	MaxRollingHours = 168
)

// Config describes one monitored entity pair.
type Config struct {
	Name            string  `json:"name"`
	EnergyEntity    string  `json:"energy_entity"`
	PriceEntity     string  `json:"price_entity"`
	RollingHours    int     `json:"rolling_hours"`
	EnergyThreshold float64 `json:"energy_threshold,omitempty"`
}

// Validate checks the configurable parameters against their allowed ranges.
func (c Config) Validate() error {
	if c.RollingHours < MinRollingHours || c.RollingHours > MaxRollingHours {
		return fmt.Errorf("%w: got %d", ErrInvalidRollingHours, c.RollingHours)
	}
	if c.EnergyThreshold < 0 || c.EnergyThreshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.EnergyThreshold)
	}
	return nil
}

// Engine computes the energy score from the two raw entity streams. It owns
// the rolling energy and price series and is refreshed by a single caller;
// no refresh overlaps another for the same instance.
type Engine struct {
	cfg    Config
	now    func() time.Time
	logger *log.Logger

	energy *Series
	prices *Series

	score       int
	quality     float64
	consumption map[time.Time]float64
	lastUpdated *time.Time
}

// RefreshResult carries the per-hour figures a refresh produced, for the
// cost and savings trackers that consume the same delta and price.
type RefreshResult struct {
	Score    int
	Quality  float64
	Delta    float64
	HasDelta bool
	Price    float64
	Time     time.Time
}

// NewEngine creates an engine for the given entity pair. A nil clock uses
// wall time; a nil logger uses the default logger.
func NewEngine(cfg Config, now func() time.Time, logger *log.Logger) *Engine {
	if cfg.RollingHours == 0 {
		cfg.RollingHours = DefaultRollingHours
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:    cfg,
		now:    now,
		logger: logger,
		energy: NewSeries(cfg.RollingHours, true),
		prices: NewSeries(cfg.RollingHours, false),
		score:  100, // optimistic default until enough data accrues
	}
}

// Refresh ingests one pair of raw readings and recomputes score and quality.
// Every failure is downgraded to a logged, skipped cycle: the previous
// score, quality and rolling history are preserved.
func (e *Engine) Refresh(energy, price Reading) (RefreshResult, error) {
	now := e.now()

	energyValue, energyErr := energy.Value()
	if energyErr != nil {
		e.logger.Printf("%s - energy data from %s rejected: %v", e.cfg.Name, e.cfg.EnergyEntity, energyErr)
	}
	priceValue, priceErr := price.Value()
	if priceErr != nil {
		e.logger.Printf("%s - price data from %s rejected: %v", e.cfg.Name, e.cfg.PriceEntity, priceErr)
	}
	if energyErr != nil {
		return RefreshResult{}, energyErr
	}
	if priceErr != nil {
		return RefreshResult{}, priceErr
	}

	hour := hourKey(now)

	e.energy.Evict(now)
	if err := e.energy.Put(hour, energyValue); err != nil {
		e.logger.Printf("%s - dropping energy sample: %v", e.cfg.Name, err)
		return RefreshResult{}, err
	}

	deltas, skipped, err := DeriveConsumption(e.energy, energy.Semantics, energy.LastReset)
	if err != nil {
		e.logger.Printf("%s - %s: %v", e.cfg.Name, e.cfg.EnergyEntity, err)
		return RefreshResult{}, err
	}
	for _, t := range skipped {
		e.logger.Printf("%s - energy counter declined at %s without a fresh reset marker, skipping delta",
			e.cfg.Name, t.Format(time.RFC3339))
	}
	e.consumption = deltas

	result := RefreshResult{
		Quality: e.quality,
		Price:   priceValue,
		Time:    now,
	}

	delta, ok := deltas[hour]
	if !ok {
		// No delta derivable for this hour yet. The price is only
		// recorded alongside a delta, so quality is unchanged too.
		if len(deltas) == 0 {
			e.logger.Printf("%s - not enough data to calculate energy use in the last %d hours",
				e.cfg.Name, e.cfg.RollingHours)
		}
		e.lastUpdated = &now
		result.Score = e.score
		return result, nil
	}
	result.Delta = delta
	result.HasDelta = true

	e.prices.Evict(now)
	if err := e.prices.Put(hour, priceValue); err != nil {
		e.logger.Printf("%s - dropping price sample: %v", e.cfg.Name, err)
		return RefreshResult{}, err
	}

	e.quality = round2(math.Min(1.0, float64(e.prices.Len())/float64(e.cfg.RollingHours)))
	result.Quality = e.quality

	weights := NormalizePrices(e.prices.Map())
	fractions := NormalizeEnergy(deltas)
	if e.cfg.EnergyThreshold > 0 {
		fractions = applyThreshold(fractions, e.cfg.EnergyThreshold)
	}

	e.score = int(math.Round(dot(weights, fractions) * 100))
	e.lastUpdated = &now

	result.Score = e.score
	return result, nil
}

// applyThreshold drops hours whose consumption fraction falls below the
// threshold, then rescales the remaining fractions to sum to 1. The filter
// applies to the energy vector only, never the price weights.
func applyThreshold(fractions map[time.Time]float64, threshold float64) map[time.Time]float64 {
	kept := make(map[time.Time]float64, len(fractions))
	sum := 0.0
	for t, f := range fractions {
		if f < threshold {
			continue
		}
		kept[t] = f
		sum += f
	}
	if len(kept) == 0 || sum == 0 {
		return fractions
	}
	for t, f := range kept {
		kept[t] = f / sum
	}
	return kept
}

// dot multiplies the two vectors over their common hours.
func dot(weights, fractions map[time.Time]float64) float64 {
	sum := 0.0
	for t, f := range fractions {
		if w, ok := weights[t]; ok {
			sum += w * f
		}
	}
	return sum
}

// Score returns the current score in [0, 100].
func (e *Engine) Score() int { return e.score }

// Quality returns the confidence ratio in [0, 1].
func (e *Engine) Quality() float64 { return e.quality }

// Consumption returns the per-hour deltas derived by the last refresh.
func (e *Engine) Consumption() map[time.Time]float64 { return e.consumption }

// Snapshot is the externally visible state of the score sensor.
type Snapshot struct {
	Score        int                `json:"score"`
	EnergyEntity string             `json:"energy_entity"`
	PriceEntity  string             `json:"price_entity"`
	Quality      float64            `json:"quality"`
	TotalEnergy  map[string]float64 `json:"total_energy"`
	Price        map[string]float64 `json:"price"`
	LastUpdated  *time.Time         `json:"last_updated"`
}

// Snapshot returns the current state and attribute bag, including the raw
// rolling maps for observability.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Score:        e.score,
		EnergyEntity: e.cfg.EnergyEntity,
		PriceEntity:  e.cfg.PriceEntity,
		Quality:      e.quality,
		TotalEnergy:  isoKeyed(e.energy.Map()),
		Price:        isoKeyed(e.prices.Map()),
		LastUpdated:  e.lastUpdated,
	}
}

// Restore reinstates a persisted headline snapshot. The rolling series are
// not restored, so quality is low until the window refills.
func (e *Engine) Restore(score int, quality float64, lastUpdated *time.Time) {
	e.score = score
	e.quality = quality
	e.lastUpdated = lastUpdated
}
