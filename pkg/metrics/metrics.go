package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "employees", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "employees", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// Operations counts record operations by name and outcome code
	// ("ok" or an apperr code such as "not_found").
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "employees", Name: "operations_total", Help: "Number of record operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	ListDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "employees", Name: "list_duration_seconds", Help: "Latency of paginated listing (find + count).", Buckets: prometheus.DefBuckets},
		[]string{"operation"},
	)
	BulkItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "employees", Name: "bulk_items_total", Help: "Per-item outcomes of bulk create and update."},
		[]string{"operation", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(ListDuration)
	reg.MustRegister(BulkItems)
}
