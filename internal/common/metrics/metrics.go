// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surfaces label which entry point produced a prediction.
const (
	SurfaceWeb    = "web"
	SurfaceAPI    = "api"
	SurfaceWorker = "worker"
	SurfaceCLI    = "cli"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served, by label",
		},
		[]string{"label", "surface"},
	)

	PredictionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests",
		},
		[]string{"error_code", "surface"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Duration of collect, encode and predict in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"surface"},
	)

	PredictionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_cache_total",
			Help: "Prediction cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_info",
			Help: "Loaded model artifact; value is the feature count",
		},
		[]string{"name", "version"},
	)

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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
