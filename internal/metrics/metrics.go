package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejudge_executions_total",
			Help: "Total number of sandbox executions by outcome",
		},
		[]string{"language", "status"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codejudge_execution_duration_ms",
			Help:    "Execution duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"language", "phase"}, // phase: "compile", "run"
	)

	MemoryUsage = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codejudge_memory_usage_kb",
			Help:    "Peak memory usage per execution in KB",
			Buckets: []float64{1024, 4096, 16384, 65536, 131072, 262144},
		},
		[]string{"language"},
	)

	ContainerCreationTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codejudge_container_creation_ms",
			Help:    "Time to create and start a container",
			Buckets: []float64{50, 100, 200, 500, 1000, 2000},
		},
	)

	ActiveContainers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_active_containers",
			Help: "Containers created and not yet cleaned up",
		},
	)

	CleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejudge_cleanup_failures_total",
			Help: "Container stop or remove calls that failed",
		},
		[]string{"step"},
	)

	LaunchThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codejudge_launch_throttled_total",
			Help: "Container launches that had to wait for the launch limiter",
		},
	)

	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejudge_evaluations_total",
			Help: "Finished submission evaluations by final status",
		},
		[]string{"language", "status"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codejudge_evaluation_duration_ms",
			Help:    "Wall time of a whole submission evaluation",
			Buckets: []float64{500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_queue_depth",
			Help: "Current number of jobs in the queue",
		},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_active_workers",
			Help: "Number of workers currently processing jobs",
		},
	)

	QueueRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codejudge_queue_rejected_total",
			Help: "Jobs dropped because the queue was full or closed",
		},
	)
)
