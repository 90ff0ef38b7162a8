package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/grid-oracle/internal/models"
)

// RaceRepository defines the interface for race data access
type RaceRepository interface {
	Create(ctx context.Context, race *models.Race) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error)
	GetBySeasonRound(ctx context.Context, season, round int) (*models.Race, error)
	GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error)
	// GetFinished returns completed races ordered by (season, round),
	// the canonical chronological order for rating replay.
	GetFinished(ctx context.Context) ([]*models.Race, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error)
	Update(ctx context.Context, race *models.Race) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResultRepository defines the interface for race result data access
type ResultRepository interface {
	InsertBatch(ctx context.Context, results []*models.DriverResult) error
	// GetByRaceID returns results ordered by classified position,
	// retirements last.
	GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]*models.DriverResult, error)
	GetByDriver(ctx context.Context, driver string, limit int) ([]*models.DriverResult, error)
	DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error
}

// WeatherRepository defines the interface for race weather data access
type WeatherRepository interface {
	Upsert(ctx context.Context, weather *models.RaceWeather) error
	GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceWeather, error)
}

// ArtifactRepository defines the interface for trained model artifact persistence
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *models.TrainedModelArtifact) error
	GetByVersion(ctx context.Context, modelVersion string) (*models.TrainedModelArtifact, error)
	// GetLatest returns the artifact currently marked for serving, or
	// models.ErrModelNotTrained when no artifact has been promoted.
	GetLatest(ctx context.Context) (*models.TrainedModelArtifact, error)
	SetLatest(ctx context.Context, modelVersion string) error
	ListVersions(ctx context.Context, limit int) ([]string, error)
}

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	InsertBatch(ctx context.Context, predictions []models.PredictionResult) error
	// ReplaceForRace atomically swaps the stored predictions for a race
	// with a fresh batch; the race is never left without predictions.
	ReplaceForRace(ctx context.Context, raceID uuid.UUID, predictions []models.PredictionResult) error
	GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.PredictionResult, error)
	DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error
}
