// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Jobs currently being processed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Store calls by backend, operation and outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of store calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_cache_lookups_total",
			Help: "Property cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	QueryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_queries_total",
			Help: "Orchestrator loads by mode (all, search) and outcome (ok, failed, stale)",
		},
		[]string{"mode", "outcome"},
	)

	ReconcileDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_dropped_bookmarks_total",
			Help: "Bookmarks omitted from the saved view, by reason (missing, failed)",
		},
		[]string{"reason"},
	)
)

// Outcome maps an error to the outcome label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
