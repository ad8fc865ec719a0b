package metrics

import "github.com/prometheus/client_golang/prometheus"

// Feed Prometheus metrics.
var (
	FeedItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geofeed",
			Name:      "feed_items_total",
			Help:      "Items emitted by feed assembly",
		},
		[]string{"view", "strategy"}, // strategy: direct / filtered
	)

	ScoringColdStartTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geofeed",
			Name:      "scoring_cold_start_total",
			Help:      "Scorer invocations that applied the new-account blend",
		},
		[]string{"kind"},
	)

	ScoringDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geofeed",
			Name:      "scoring_degraded_total",
			Help:      "Personalized feeds served unranked because scoring failed",
		},
	)

	EngagementRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geofeed",
			Name:      "engagement_recorded_total",
			Help:      "Engagement entries recorded",
		},
		[]string{"kind", "type"},
	)

	StoreBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geofeed",
			Name:      "store_breaker_state",
			Help:      "Store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)

var feedMetricsRegistered bool

// RegisterFeedMetrics registers Prometheus feed metrics. Must be called once from main.
func RegisterFeedMetrics() {
	if feedMetricsRegistered {
		return
	}
	prometheus.MustRegister(FeedItemsTotal)
	prometheus.MustRegister(ScoringColdStartTotal)
	prometheus.MustRegister(ScoringDegradedTotal)
	prometheus.MustRegister(EngagementRecordedTotal)
	prometheus.MustRegister(StoreBreakerState)
	feedMetricsRegistered = true
}
