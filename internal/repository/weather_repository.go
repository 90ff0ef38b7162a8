package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/models"
)

// PostgresWeatherRepository implements WeatherRepository for PostgreSQL
type PostgresWeatherRepository struct {
	db *database.DB
}

// NewPostgresWeatherRepository creates a new weather repository
func NewPostgresWeatherRepository(db *database.DB) WeatherRepository {
	return &PostgresWeatherRepository{db: db}
}

// Upsert inserts or replaces the weather aggregate for a race
func (w *PostgresWeatherRepository) Upsert(ctx context.Context, weather *models.RaceWeather) error {
	query := `
		INSERT INTO race_weather (race_id, air_temp, track_temp, humidity, rainfall, wind_speed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (race_id) DO UPDATE SET
			air_temp = EXCLUDED.air_temp,
			track_temp = EXCLUDED.track_temp,
			humidity = EXCLUDED.humidity,
			rainfall = EXCLUDED.rainfall,
			wind_speed = EXCLUDED.wind_speed
	`

	_, err := w.db.GetPool().Exec(ctx, query,
		weather.RaceID, weather.AirTemp, weather.TrackTemp,
		weather.Humidity, weather.Rainfall, weather.WindSpeed,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert race weather: %w", err)
	}

	return nil
}

// GetByRaceID retrieves the weather aggregate for a race
func (w *PostgresWeatherRepository) GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceWeather, error) {
	query := `
		SELECT race_id, air_temp, track_temp, humidity, rainfall, wind_speed
		FROM race_weather WHERE race_id = $1
	`

	weather := &models.RaceWeather{}
	err := w.db.GetPool().QueryRow(ctx, query, raceID).Scan(
		&weather.RaceID, &weather.AirTemp, &weather.TrackTemp,
		&weather.Humidity, &weather.Rainfall, &weather.WindSpeed,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race weather: %w", err)
	}

	return weather, nil
}
