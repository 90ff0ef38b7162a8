package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/models"
)

const resultColumns = `race_id, driver_id, driver, team, grid, position, status, points, laps, pit_stops`

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// InsertBatch inserts all results for a race in one transaction
func (r *PostgresResultRepository) InsertBatch(ctx context.Context, results []*models.DriverResult) error {
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO race_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, result := range results {
			batch.Queue(query,
				result.RaceID, result.DriverID, result.Driver, result.Team,
				result.Grid, result.Position, result.Status, result.Points,
				result.Laps, result.PitStops,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range results {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert race result: %w", err)
			}
		}
		return nil
	})
}

// GetByRaceID retrieves all results for a race, classified order first
func (r *PostgresResultRepository) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]*models.DriverResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM race_results
		WHERE race_id = $1
		ORDER BY position ASC NULLS LAST, laps DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query race results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetByDriver retrieves a driver's most recent results
func (r *PostgresResultRepository) GetByDriver(ctx context.Context, driver string, limit int) ([]*models.DriverResult, error) {
	query := `
		SELECT rr.race_id, rr.driver_id, rr.driver, rr.team, rr.grid, rr.position,
		       rr.status, rr.points, rr.laps, rr.pit_stops
		FROM race_results rr
		JOIN races r ON r.id = rr.race_id
		WHERE rr.driver = $1 AND r.status = 'finished'
		ORDER BY r.season DESC, r.round DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, driver, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// DeleteByRaceID removes all results for a race
func (r *PostgresResultRepository) DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error {
	_, err := r.db.GetPool().Exec(ctx, "DELETE FROM race_results WHERE race_id = $1", raceID)
	if err != nil {
		return fmt.Errorf("failed to delete race results: %w", err)
	}
	return nil
}

func scanResults(rows pgx.Rows) ([]*models.DriverResult, error) {
	var results []*models.DriverResult
	for rows.Next() {
		result := &models.DriverResult{}
		err := rows.Scan(
			&result.RaceID, &result.DriverID, &result.Driver, &result.Team,
			&result.Grid, &result.Position, &result.Status, &result.Points,
			&result.Laps, &result.PitStops,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
