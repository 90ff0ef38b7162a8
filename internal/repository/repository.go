package repository

import (
	"fmt"

	"github.com/yourusername/grid-oracle/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Race       RaceRepository
	Result     ResultRepository
	Weather    WeatherRepository
	Artifact   ArtifactRepository
	Prediction PredictionRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Race:       NewPostgresRaceRepository(db),
		Result:     NewPostgresResultRepository(db),
		Weather:    NewPostgresWeatherRepository(db),
		Artifact:   NewPostgresArtifactRepository(db),
		Prediction: NewPostgresPredictionRepository(db),
	}, nil
}
