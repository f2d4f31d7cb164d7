// Package metrics provides the centralized Prometheus registry for the
// prediction pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "predictions_generated_total",
		Help:      "Total number of predictions generated",
	})
	TrainingRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "training_runs_total",
		Help:      "Total number of training runs started",
	})
	TrainingFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "training_failures_total",
		Help:      "Total number of training runs that failed",
	})
	FeatureDefaultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "feature_defaults_total",
		Help:      "Total number of neutral-default feature substitutions",
	}, []string{"column"})
	IngestedSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "ingested_sessions_total",
		Help:      "Total number of sessions ingested",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridline",
		Name:      "prediction_cache_hits_total",
		Help:      "Total number of prediction cache hits",
	})
)

// Gauge metrics
var (
	ModelMAE = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gridline",
		Name:      "model_mae",
		Help:      "Held-out mean absolute position error of each model",
	}, []string{"algorithm", "version"})
	ModelSpearman = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gridline",
		Name:      "model_spearman",
		Help:      "Held-out Spearman rank correlation of each model",
	}, []string{"algorithm", "version"})
	ModelTop10HitRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gridline",
		Name:      "model_top10_hit_rate",
		Help:      "Held-out top-10 hit rate of each model",
	}, []string{"algorithm", "version"})
	TrainingSetRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridline",
		Name:      "training_set_rows",
		Help:      "Row count of the most recent training matrix",
	})
)

// Histogram metrics
var (
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridline",
		Name:      "training_duration_seconds",
		Help:      "Duration of full training runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
	PredictionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridline",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of per-race prediction batches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	IngestionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridline",
		Name:      "ingestion_duration_seconds",
		Help:      "Duration of per-session ingestion in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PredictionsGeneratedTotal)
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingFailuresTotal)
		registry.MustRegister(FeatureDefaultsTotal)
		registry.MustRegister(IngestedSessionsTotal)
		registry.MustRegister(CacheHitsTotal)

		// Register gauge metrics
		registry.MustRegister(ModelMAE)
		registry.MustRegister(ModelSpearman)
		registry.MustRegister(ModelTop10HitRate)
		registry.MustRegister(TrainingSetRows)

		// Register histogram metrics
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(PredictionLatency)
		registry.MustRegister(IngestionDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records one generated prediction.
func RecordPrediction() {
	PredictionsGeneratedTotal.Inc()
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(durationSeconds float64) {
	TrainingRunsTotal.Inc()
	TrainingDuration.Observe(durationSeconds)
}

// RecordTrainingFailure records a failed training run.
func RecordTrainingFailure() {
	TrainingFailuresTotal.Inc()
}

// RecordFeatureDefault records a neutral-default substitution for a column.
func RecordFeatureDefault(column string) {
	FeatureDefaultsTotal.WithLabelValues(column).Inc()
}

// RecordModelQuality updates the held-out quality gauges for a model.
func RecordModelQuality(algorithm, version string, mae, spearman, top10 float64) {
	ModelMAE.WithLabelValues(algorithm, version).Set(mae)
	ModelSpearman.WithLabelValues(algorithm, version).Set(spearman)
	ModelTop10HitRate.WithLabelValues(algorithm, version).Set(top10)
}

// RecordIngestedSession records one ingested session.
func RecordIngestedSession(durationSeconds float64) {
	IngestedSessionsTotal.Inc()
	IngestionDuration.Observe(durationSeconds)
}

// RecordCacheHit records a prediction cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordPredictionLatency records per-race prediction batch latency.
func RecordPredictionLatency(durationSeconds float64) {
	PredictionLatency.Observe(durationSeconds)
}
