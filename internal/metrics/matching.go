package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawtrace",
			Name:      "match_requests_total",
			Help:      "Total number of similarity match requests",
		},
		[]string{"status"},
	)

	MatchCandidatesRanked = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pawtrace",
			Name:      "match_candidates_ranked",
			Help:      "Candidates scored per match request",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		},
	)

	MatchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pawtrace",
			Name:      "match_results_returned",
			Help:      "Matches over threshold returned per request",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	ProximityRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawtrace",
			Name:      "proximity_requests_total",
			Help:      "Total number of proximity search requests",
		},
		[]string{"status"},
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers Prometheus matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchCandidatesRanked)
	prometheus.MustRegister(MatchResultsReturned)
	prometheus.MustRegister(ProximityRequestsTotal)
	matchMetricsRegistered = true
}
