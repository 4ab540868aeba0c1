package score

import "time"

// CostAccumulator keeps a running monetary total of consumption times price
// for the current local day. It distinguishes "no data yet" from a genuine
// zero cost, and resets at the local-midnight rollover.
type CostAccumulator struct {
	total       float64
	known       bool
	lastEnergy  map[time.Time]float64
	lastUpdated *time.Time
}

// NewCostAccumulator creates an accumulator with no data yet.
func NewCostAccumulator() *CostAccumulator {
	return &CostAccumulator{lastEnergy: map[time.Time]float64{}}
}

// Update adds one per-hour consumption delta at the given price. A date
// change since the previous update resets the running total before the new
// sample is accumulated. The total is kept unrounded internally and only
// rounded when emitted.
func (c *CostAccumulator) Update(delta, price float64, now time.Time) {
	if c.lastUpdated != nil && !sameLocalDay(*c.lastUpdated, now) {
		c.total = 0
		c.lastEnergy = map[time.Time]float64{}
	}

	c.total += delta * price
	c.known = true
	c.lastEnergy[hourKey(now)] = delta
	c.lastUpdated = &now
}

// Total returns the cumulative cost for the current day, rounded to 2
// decimals. The second return is false until the first valid delta has been
// accumulated.
func (c *CostAccumulator) Total() (float64, bool) {
	return round2(c.total), c.known
}

// CostSnapshot is the externally visible state of the cost sensor.
type CostSnapshot struct {
	Cost              float64            `json:"cost"`
	Known             bool               `json:"known"`
	LastUpdatedEnergy map[string]float64 `json:"last_updated_energy"`
	LastUpdated       *time.Time         `json:"last_updated"`
}

// Snapshot returns the current state and attribute bag.
func (c *CostAccumulator) Snapshot() CostSnapshot {
	return CostSnapshot{
		Cost:              round2(c.total),
		Known:             c.known,
		LastUpdatedEnergy: isoKeyed(c.lastEnergy),
		LastUpdated:       c.lastUpdated,
	}
}

// Restore reinstates a persisted cumulative cost.
func (c *CostAccumulator) Restore(total float64, lastUpdated *time.Time) {
	c.total = total
	c.known = true
	c.lastUpdated = lastUpdated
}
