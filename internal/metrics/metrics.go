// Package metrics provides the centralized Prometheus metrics registry for the prediction engine.
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
	PredictionsServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "predictions_served_total",
		Help:      "Total number of race predictions served",
	})
	PredictionCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "prediction_cache_hits_total",
		Help:      "Total number of predictions answered from cache",
	})
	TrainingRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "training_runs_total",
		Help:      "Total number of completed training runs",
	})
	TrainingFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "training_failures_total",
		Help:      "Total number of failed training runs",
	})
	SimulationTrialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "simulation_trials_total",
		Help:      "Total number of Monte Carlo trials executed",
	})
	DegradedTrialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "degraded_trials_total",
		Help:      "Total number of trials that fell back to zero-noise sampling",
	})
	RatingUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grid_oracle",
		Name:      "rating_updates_total",
		Help:      "Total number of races folded into the rating pools",
	})
)

// Gauge metrics
var (
	TrackedDrivers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "grid_oracle",
		Name:      "tracked_drivers",
		Help:      "Number of drivers with a live rating",
	})
	TrackedTeams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "grid_oracle",
		Name:      "tracked_teams",
		Help:      "Number of teams with a live rating",
	})
	ModelTrainingRaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "grid_oracle",
		Name:      "model_training_races",
		Help:      "Number of races in the current model's training set",
	})
	ModelInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "grid_oracle",
		Name:      "model_info",
		Help:      "Serving model metadata, value fixed at 1",
	}, []string{"model_version"})
)

// Histogram metrics
var (
	PredictionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grid_oracle",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of served race predictions in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grid_oracle",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of full Monte Carlo simulation runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grid_oracle",
		Name:      "training_duration_seconds",
		Help:      "Duration of training runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PredictionsServedTotal)
		registry.MustRegister(PredictionCacheHitsTotal)
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingFailuresTotal)
		registry.MustRegister(SimulationTrialsTotal)
		registry.MustRegister(DegradedTrialsTotal)
		registry.MustRegister(RatingUpdatesTotal)

		registry.MustRegister(TrackedDrivers)
		registry.MustRegister(TrackedTeams)
		registry.MustRegister(ModelTrainingRaces)
		registry.MustRegister(ModelInfo)

		registry.MustRegister(PredictionLatency)
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(TrainingDuration)
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

// RecordPrediction records a served prediction and its latency.
func RecordPrediction(durationSeconds float64, cacheHit bool) {
	PredictionsServedTotal.Inc()
	PredictionLatency.Observe(durationSeconds)
	if cacheHit {
		PredictionCacheHitsTotal.Inc()
	}
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(durationSeconds float64, trainingRaces int) {
	TrainingRunsTotal.Inc()
	TrainingDuration.Observe(durationSeconds)
	ModelTrainingRaces.Set(float64(trainingRaces))
}

// RecordTrainingFailure records a failed training run.
func RecordTrainingFailure() {
	TrainingFailuresTotal.Inc()
}

// RecordSimulation records one simulation run's trial counts and duration.
func RecordSimulation(trials, degradedTrials int, durationSeconds float64) {
	SimulationTrialsTotal.Add(float64(trials))
	DegradedTrialsTotal.Add(float64(degradedTrials))
	SimulationDuration.Observe(durationSeconds)
}

// RecordRatingUpdate records a race folded into the rating pools.
func RecordRatingUpdate(trackedDrivers, trackedTeams int) {
	RatingUpdatesTotal.Inc()
	TrackedDrivers.Set(float64(trackedDrivers))
	TrackedTeams.Set(float64(trackedTeams))
}

// SetServingModel marks the currently serving model version.
func SetServingModel(modelVersion string) {
	ModelInfo.Reset()
	ModelInfo.WithLabelValues(modelVersion).Set(1)
}
