package score

import "time"

// NormalizePrices converts a price map into inverted-distance weights in
// [0, 1]: the cheapest hour maps to 1.0 and the most expensive to 0.0. A
// single entry carries full weight. When every price is equal there is no
// discriminating signal and each entry gets 1/N.
func NormalizePrices(prices map[time.Time]float64) map[time.Time]float64 {
	if len(prices) == 0 {
		return map[time.Time]float64{}
	}

	out := make(map[time.Time]float64, len(prices))
	if len(prices) == 1 {
		for t := range prices {
			out[t] = 1.0
		}
		return out
	}

	var minP, maxP float64
	first := true
	for _, v := range prices {
		if first {
			minP, maxP = v, v
			first = false
			continue
		}
		if v < minP {
			minP = v
		}
		if v > maxP {
			maxP = v
		}
	}

	if maxP == minP {
		for t := range prices {
			out[t] = 1.0 / float64(len(prices))
		}
		return out
	}

	for t, v := range prices {
		out[t] = (maxP - v) / (maxP - minP)
	}
	return out
}

// NormalizeEnergy converts consumption deltas into fractions of the total,
// summing to 1. A zero total falls back to equal weighting, avoiding a
// division by zero.
func NormalizeEnergy(consumption map[time.Time]float64) map[time.Time]float64 {
	if len(consumption) == 0 {
		return map[time.Time]float64{}
	}

	sum := 0.0
	for _, v := range consumption {
		sum += v
	}

	out := make(map[time.Time]float64, len(consumption))
	if sum == 0 {
		for t := range consumption {
			out[t] = 1.0 / float64(len(consumption))
		}
		return out
	}

	for t, v := range consumption {
		out[t] = v / sum
	}
	return out
}
