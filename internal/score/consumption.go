package score

import (
	"fmt"
	"time"
)

// DeriveConsumption turns a cumulative energy-counter series into per-hour
// consumption deltas keyed at each sample's timestamp.
//
// A declared "measurement" is never a counter and is rejected outright.
// Other semantics are judged at the point a decline is observed:
//
//   - a reset marker newer than the previous sample confirms a restart, so
//     the delta is the new reading itself (counter restarted from zero);
//   - an ever-increasing counter that declines without a marker is a sensor
//     glitch: that delta is skipped and its timestamp returned for logging;
//   - a plain total without a fresh marker, or missing semantics, cannot be
//     trusted and invalidates the whole refresh.
func DeriveConsumption(energy *Series, sem Semantics, lastReset *time.Time) (map[time.Time]float64, []time.Time, error) {
	if sem == SemanticsMeasurement {
		return nil, nil, fmt.Errorf("%w: state class is measurement, expected total or total_increasing", ErrInvalidSemantics)
	}

	samples := energy.Samples()
	deltas := make(map[time.Time]float64, len(samples))
	var skipped []time.Time

	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		delta := cur.Value - prev.Value
		if delta < 0 {
			switch {
			case lastReset != nil && lastReset.After(prev.Time):
				delta = cur.Value
			case sem == SemanticsTotalIncreasing:
				skipped = append(skipped, cur.Time)
				continue
			case sem == SemanticsTotal:
				return nil, nil, fmt.Errorf("%w: state class is total but the counter declined without a fresh last_reset marker", ErrInvalidSemantics)
			default:
				return nil, nil, fmt.Errorf("%w: state class is missing and the counter declined, expected total or total_increasing", ErrInvalidSemantics)
			}
		}
		deltas[cur.Time] = round2(delta)
	}

	return deltas, skipped, nil
}
