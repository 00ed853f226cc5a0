package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts index operations.
	// Labels: op (provision, ingest, retrieve, enumerate, delete_all,
	// delete_user), result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"op", "result"},
	)

	// OperationDuration tracks how long index operations take.
	// Labels: op
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// EnumerationCacheHits counts enumeration cache lookups by outcome.
	// Labels: outcome (hit, miss)
	EnumerationCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "vectorstore",
			Name:      "enumeration_cache_lookups_total",
			Help:      "Total number of enumeration cache lookups",
		},
		[]string{"outcome"},
	)
)

// observeOperation records the outcome and duration of one operation.
func observeOperation(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(op, result).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// recordCacheLookup records whether an enumeration was served from cache.
func recordCacheLookup(hit bool) {
	if hit {
		EnumerationCacheHits.WithLabelValues("hit").Inc()
	} else {
		EnumerationCacheHits.WithLabelValues("miss").Inc()
	}
}
