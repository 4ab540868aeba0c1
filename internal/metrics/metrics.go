package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshesTotal counts completed refresh cycles per sensor
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyscore_refreshes_total",
			Help: "Total number of completed refresh cycles",
		},
		[]string{"sensor"},
	)

	// RefreshSkipsTotal counts skipped refresh cycles by reason
	RefreshSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyscore_refresh_skips_total",
			Help: "Total number of refresh cycles skipped due to bad source data",
		},
		[]string{"sensor", "reason"},
	)

	// Score is the current energy score per sensor
	Score = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyscore_score",
			Help: "Current energy score (0-100)",
		},
		[]string{"sensor"},
	)

	// Quality is the current data quality per sensor
	Quality = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyscore_quality",
			Help: "Fraction of the rolling window backed by real price data (0-1)",
		},
		[]string{"sensor"},
	)

	// Cost is the cumulative cost for the current day per sensor
	Cost = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyscore_cost_today",
			Help: "Cumulative energy cost for the current day",
		},
		[]string{"sensor"},
	)

	// RefreshDuration measures refresh cycle latency
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "energyscore_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// Skip reasons for RefreshSkipsTotal.
const (
	ReasonFetch       = "fetch_failed"
	ReasonUnavailable = "source_unavailable"
	ReasonNonNumeric  = "non_numeric"
	ReasonSemantics   = "invalid_semantics"
)
