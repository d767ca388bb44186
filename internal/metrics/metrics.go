package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PI Web API calls, labelled by endpoint (points, value, recorded,
	// interpolated, summary, query) and outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalink_provider_requests_total",
			Help: "Total number of PI Web API requests",
		},
		[]string{"endpoint", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datalink_provider_request_duration_seconds",
			Help:    "PI Web API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"endpoint"},
	)

	TagCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalink_tag_cache_lookups_total",
			Help: "Tag resolver cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	NormalizerMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalink_normalizer_matches_total",
			Help: "Payloads parsed, by the strategy that produced rows",
		},
		[]string{"strategy"},
	)

	RowsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalink_rows_fetched_total",
			Help: "Tidy rows returned by fetch",
		},
	)
)
