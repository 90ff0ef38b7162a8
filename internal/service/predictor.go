package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/ensemble"
	"github.com/yourusername/grid-oracle/internal/features"
	"github.com/yourusername/grid-oracle/internal/logger"
	"github.com/yourusername/grid-oracle/internal/metrics"
	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/rating"
	"github.com/yourusername/grid-oracle/internal/repository"
	"github.com/yourusername/grid-oracle/internal/simulation"
)

// PredictorService owns the full prediction lifecycle: replaying
// history into ratings, training ensemble artifacts and serving
// simulated race predictions.
type PredictorService struct {
	races       repository.RaceRepository
	results     repository.ResultRepository
	weather     repository.WeatherRepository
	artifacts   repository.ArtifactRepository
	predictions repository.PredictionRepository

	hyper          ensemble.HyperParams
	simConfig      simulation.Config
	driverK        float64
	teamK          float64
	defaultWeather simulation.Weather

	cache   *gocache.Cache
	limiter *rate.Limiter

	logger    *logrus.Logger
	modelLog  *logger.ModelLogger
	ratingLog *logger.RatingLogger

	mu      sync.Mutex
	tracker *rating.Tracker
	applied map[uuid.UUID]bool
}

// NewPredictorService wires the service from configuration
func NewPredictorService(repos *repository.Repositories, cfg *config.Config, log *logrus.Logger) (*PredictorService, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if log == nil {
		log = logrus.New()
	}

	hyper := ensemble.HyperParams{
		LearningRate:    cfg.Model.LearningRate,
		Epochs:          cfg.Model.Epochs,
		BlendWeightRank: cfg.Model.BlendWeightRank,
		BlendWeightReg:  cfg.Model.BlendWeightReg,
		MinRaces:        cfg.Model.MinRaces,
	}
	if err := hyper.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	simConfig := simulation.Config{
		Trials:              cfg.Simulation.Trials,
		BaseSeed:            cfg.Simulation.BaseSeed,
		Workers:             cfg.Simulation.Workers,
		IncidentProbability: cfg.Simulation.IncidentProbability,
		IncidentMaxDrivers:  cfg.Simulation.IncidentMaxDrivers,
		WetNoiseMultiplier:  cfg.Simulation.WetNoiseMultiplier,
		WetDNFMultiplier:    cfg.Simulation.WetDNFMultiplier,
		MinResidualSamples:  cfg.Simulation.MinResidualSamples,
		DNFFloor:            cfg.Simulation.DNFFloor,
		DNFCap:              cfg.Simulation.DNFCap,
	}
	if err := simConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	ttl := time.Duration(cfg.Prediction.CacheTTLSeconds) * time.Second
	cleanup := time.Duration(cfg.Prediction.CacheCleanupSeconds) * time.Second

	return &PredictorService{
		races:          repos.Race,
		results:        repos.Result,
		weather:        repos.Weather,
		artifacts:      repos.Artifact,
		predictions:    repos.Prediction,
		hyper:          hyper,
		simConfig:      simConfig,
		driverK:        cfg.Rating.DriverKFactor,
		teamK:          cfg.Rating.TeamKFactor,
		defaultWeather: simulation.Weather(cfg.Prediction.DefaultWeather),
		cache:          gocache.New(ttl, cleanup),
		limiter:        rate.NewLimiter(rate.Limit(cfg.Prediction.RequestsPerSecond), cfg.Prediction.RequestBurst),
		logger:         log,
		modelLog:       logger.NewModelLogger(log),
		ratingLog:      logger.NewRatingLogger(log),
		applied:        make(map[uuid.UUID]bool),
	}, nil
}

// Train replays the full completed-race history chronologically,
// fits a new ensemble artifact and promotes it to serving.
func (s *PredictorService) Train(ctx context.Context) (string, error) {
	start := time.Now()

	records, err := s.loadFinishedRecords(ctx)
	if err != nil {
		metrics.RecordTrainingFailure()
		return "", err
	}

	builder := features.NewBuilder()
	tracker := rating.NewTrackerWithK(s.driverK, s.teamK)
	rows := s.buildTrainingRows(records, builder, tracker)

	ens, err := ensemble.New(s.hyper)
	if err != nil {
		metrics.RecordTrainingFailure()
		return "", err
	}

	modelVersion := time.Now().UTC().Format("20060102T150405Z")
	opts := ensemble.TrainOptions{
		ModelVersion:    modelVersion,
		TeamReliability: features.TeamReliabilities(records),
		EncoderMappings: builder.Encoder().Mapping(),
	}
	if len(records) > 0 {
		opts.TrainingDataCutoff = records[len(records)-1].Race.ScheduledStart
	}

	artifact, err := ens.Train(rows, opts)
	if err != nil {
		metrics.RecordTrainingFailure()
		return "", fmt.Errorf("training failed: %w", err)
	}

	if err := s.artifacts.Save(ctx, artifact); err != nil {
		metrics.RecordTrainingFailure()
		return "", err
	}
	if err := s.artifacts.SetLatest(ctx, modelVersion); err != nil {
		metrics.RecordTrainingFailure()
		return "", err
	}

	// New artifact invalidates every cached prediction
	s.cache.Flush()

	drivers, teams := tracker.TrackedEntities()
	s.ratingLog.LogRatingReplay(len(records), drivers, teams)

	duration := time.Since(start)
	metrics.RecordTrainingRun(duration.Seconds(), artifact.TrainingRaces)
	metrics.SetServingModel(modelVersion)
	s.modelLog.LogModelTraining(modelVersion, artifact.TrainingRaces, duration, map[string]interface{}{
		"learning_rate":     s.hyper.LearningRate,
		"epochs":            s.hyper.Epochs,
		"blend_weight_rank": s.hyper.BlendWeightRank,
		"blend_weight_reg":  s.hyper.BlendWeightReg,
	})

	return modelVersion, nil
}

// PredictOptions tunes one prediction request
type PredictOptions struct {
	// Weather may be empty, in which case the stored forecast for the
	// race decides, falling back to the configured default.
	Weather simulation.Weather
	// ProjectGrid fills missing grid slots from blended Elo when
	// qualifying has not run yet. Without it a missing grid position
	// fails the request.
	ProjectGrid bool
}

// PredictRace simulates one race under the serving model and returns
// per-driver outcome probabilities, best win chance first.
func (s *PredictorService) PredictRace(ctx context.Context, raceID uuid.UUID, weather simulation.Weather) ([]models.PredictionResult, error) {
	return s.PredictRaceWithOptions(ctx, raceID, PredictOptions{Weather: weather})
}

// PredictRaceWithOptions is PredictRace with explicit request options
func (s *PredictorService) PredictRaceWithOptions(ctx context.Context, raceID uuid.UUID, opts PredictOptions) ([]models.PredictionResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("prediction request rejected: %w", err)
	}
	start := time.Now()

	artifact, err := s.artifacts.GetLatest(ctx)
	if err != nil {
		s.modelLog.LogPredictionError(raceID.String(), err.Error())
		return nil, err
	}

	weather := opts.Weather
	if weather == "" {
		weather, err = s.resolveWeather(ctx, raceID)
		if err != nil {
			return nil, err
		}
	}

	cacheKey := fmt.Sprintf("%s|%s|%d|%s|%t", raceID, artifact.ModelVersion, s.simConfig.Trials, weather, opts.ProjectGrid)
	if cached, ok := s.cache.Get(cacheKey); ok {
		results := clonePredictions(cached.([]models.PredictionResult))
		metrics.RecordPrediction(time.Since(start).Seconds(), true)
		s.modelLog.LogPredictionRequest(raceID.String(), len(results), s.simConfig.Trials, true, float64(time.Since(start).Milliseconds()))
		return results, nil
	}

	vectors, err := s.buildRaceVectors(ctx, raceID, artifact, opts.ProjectGrid)
	if err != nil {
		s.modelLog.LogPredictionError(raceID.String(), err.Error())
		return nil, err
	}

	sim, err := simulation.New(s.simConfig, s.logger)
	if err != nil {
		return nil, err
	}

	results, diagnostics, err := sim.Simulate(ctx, raceID, vectors, artifact, weather)
	if err != nil {
		s.modelLog.LogPredictionError(raceID.String(), err.Error())
		return nil, err
	}

	if err := s.predictions.ReplaceForRace(ctx, raceID, results); err != nil {
		return nil, err
	}

	// Cache a private copy so caller mutations cannot bleed into
	// later cache hits.
	s.cache.Set(cacheKey, clonePredictions(results), gocache.DefaultExpiration)

	metrics.RecordSimulation(diagnostics.Trials, diagnostics.DegradedTrials, diagnostics.Duration.Seconds())
	metrics.RecordPrediction(time.Since(start).Seconds(), false)
	s.modelLog.LogPredictionRequest(raceID.String(), len(results), diagnostics.Trials, false, float64(time.Since(start).Milliseconds()))

	return results, nil
}

// UpdateRatings folds one finished race into the live rating pools.
// Applying the same race twice is a no-op.
func (s *PredictorService) UpdateRatings(ctx context.Context, raceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTracker(ctx); err != nil {
		return err
	}
	if s.applied[raceID] {
		return nil
	}

	race, err := s.races.GetByID(ctx, raceID)
	if err != nil {
		return err
	}
	if !race.IsFinished() {
		return fmt.Errorf("race %s is not finished", raceID)
	}

	results, err := s.results.GetByRaceID(ctx, raceID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return &models.DataIncompleteError{RaceID: raceID.String(), Field: "results"}
	}

	s.tracker.Update(raceEntries(results))
	s.applied[raceID] = true

	drivers, teams := s.tracker.TrackedEntities()
	metrics.RecordRatingUpdate(drivers, teams)
	s.ratingLog.LogRatingUpdate(raceID.String(), len(results), drivers, teams)

	return nil
}

// History returns the completed-race history in calendar order
func (s *PredictorService) History(ctx context.Context) ([]*models.RaceRecord, error) {
	return s.loadFinishedRecords(ctx)
}

// Ratings returns a snapshot of the live rating pools
func (s *PredictorService) Ratings(ctx context.Context) (*rating.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTracker(ctx); err != nil {
		return nil, err
	}
	return s.tracker.Snapshot(), nil
}

// ensureTracker lazily replays the finished-race history into the
// live tracker. Callers must hold s.mu.
func (s *PredictorService) ensureTracker(ctx context.Context) error {
	if s.tracker != nil {
		return nil
	}

	records, err := s.loadFinishedRecords(ctx)
	if err != nil {
		return err
	}

	tracker := rating.NewTrackerWithK(s.driverK, s.teamK)
	for _, record := range records {
		tracker.Update(raceEntries(record.Results))
		s.applied[record.Race.ID] = true
	}
	s.tracker = tracker

	drivers, teams := tracker.TrackedEntities()
	s.ratingLog.LogRatingReplay(len(records), drivers, teams)
	return nil
}

// buildRaceVectors assembles pre-race feature vectors for every
// entry on the target race's grid.
func (s *PredictorService) buildRaceVectors(ctx context.Context, raceID uuid.UUID, artifact *models.TrainedModelArtifact, projectMissingGrid bool) ([]*models.FeatureVector, error) {
	race, err := s.races.GetByID(ctx, raceID)
	if err != nil {
		return nil, err
	}

	entries, err := s.results.GetByRaceID(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &models.DataIncompleteError{RaceID: raceID.String(), Field: "entries"}
	}

	raceWeather, err := s.weather.GetByRaceID(ctx, raceID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	records, err := s.loadFinishedRecords(ctx)
	if err != nil {
		return nil, err
	}

	// Only races strictly before the target race inform its features
	history := make([]*models.RaceRecord, 0, len(records))
	tracker := rating.NewTrackerWithK(s.driverK, s.teamK)
	for _, record := range records {
		if !record.Race.Before(race) {
			continue
		}
		history = append(history, record)
		tracker.Update(raceEntries(record.Results))
	}

	encoder := features.NewCategoryEncoder()
	encoder.Restore(artifact.EncoderMappings)
	builder := features.NewBuilderWithEncoder(encoder)

	snapshot := tracker.Snapshot()
	if projectMissingGrid {
		entries = projectGrid(entries, snapshot)
	}
	vectors := make([]*models.FeatureVector, 0, len(entries))
	for _, entry := range entries {
		vector, err := builder.Build(race, entry, raceWeather, snapshot, history)
		if err != nil {
			return nil, err
		}
		// Serve reliability from the artifact so predictions stay
		// consistent with the residuals trained alongside it.
		vector.TeamReliability = artifact.ReliabilityFor(entry.Team, vector.TeamReliability)
		vectors = append(vectors, vector)
	}

	return vectors, nil
}

// resolveWeather decides the forecast for a race from stored weather
// data, falling back to the configured default.
func (s *PredictorService) resolveWeather(ctx context.Context, raceID uuid.UUID) (simulation.Weather, error) {
	raceWeather, err := s.weather.GetByRaceID(ctx, raceID)
	if errors.Is(err, models.ErrNotFound) {
		return s.defaultWeather, nil
	}
	if err != nil {
		return "", err
	}
	if raceWeather.Rainfall {
		return simulation.WeatherWet, nil
	}
	return simulation.WeatherDry, nil
}

// clonePredictions shallow-copies a prediction batch. The element
// fields are all value types, so a slice copy fully detaches it.
func clonePredictions(predictions []models.PredictionResult) []models.PredictionResult {
	cloned := make([]models.PredictionResult, len(predictions))
	copy(cloned, predictions)
	return cloned
}
