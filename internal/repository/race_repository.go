package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/models"
)

const (
	errScanRace     = "failed to scan race: %w"
	raceColumns     = `id, season, round, name, circuit, scheduled_start, actual_start, total_laps, status, created_at, updated_at`
	selectRaceQuery = `SELECT ` + raceColumns + ` FROM races `
)

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(db *database.DB) RaceRepository {
	return &PostgresRaceRepository{db: db}
}

// Create inserts a new race
func (r *PostgresRaceRepository) Create(ctx context.Context, race *models.Race) error {
	query := `
		INSERT INTO races (id, season, round, name, circuit, scheduled_start, total_laps, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		race.ID, race.Season, race.Round, race.Name, race.Circuit,
		race.ScheduledStart, race.TotalLaps, race.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create race: %w", err)
	}

	return nil
}

// GetByID retrieves a race by ID
func (r *PostgresRaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	race := &models.Race{}
	err := r.db.GetPool().QueryRow(ctx, selectRaceQuery+`WHERE id = $1`, id).Scan(
		&race.ID, &race.Season, &race.Round, &race.Name, &race.Circuit,
		&race.ScheduledStart, &race.ActualStart, &race.TotalLaps, &race.Status,
		&race.CreatedAt, &race.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}

	return race, nil
}

// GetBySeasonRound retrieves the race for one calendar slot
func (r *PostgresRaceRepository) GetBySeasonRound(ctx context.Context, season, round int) (*models.Race, error) {
	race := &models.Race{}
	err := r.db.GetPool().QueryRow(ctx, selectRaceQuery+`WHERE season = $1 AND round = $2`, season, round).Scan(
		&race.ID, &race.Season, &race.Round, &race.Name, &race.Circuit,
		&race.ScheduledStart, &race.ActualStart, &race.TotalLaps, &race.Status,
		&race.CreatedAt, &race.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race by season and round: %w", err)
	}

	return race, nil
}

// GetUpcoming retrieves upcoming races ordered by scheduled start time
func (r *PostgresRaceRepository) GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error) {
	query := selectRaceQuery + `
		WHERE status = 'scheduled' AND scheduled_start > NOW()
		ORDER BY scheduled_start ASC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming races: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// GetFinished retrieves completed races in calendar order
func (r *PostgresRaceRepository) GetFinished(ctx context.Context) ([]*models.Race, error) {
	query := selectRaceQuery + `
		WHERE status = 'finished'
		ORDER BY season ASC, round ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished races: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// GetByDateRange retrieves races within a date range
func (r *PostgresRaceRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error) {
	query := selectRaceQuery + `
		WHERE scheduled_start >= $1 AND scheduled_start <= $2
		ORDER BY scheduled_start ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query races by date range: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// Update updates an existing race
func (r *PostgresRaceRepository) Update(ctx context.Context, race *models.Race) error {
	query := `
		UPDATE races SET
			actual_start = $2, total_laps = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, race.ID, race.ActualStart, race.TotalLaps, race.Status)
	if err != nil {
		return fmt.Errorf("failed to update race: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete deletes a race
func (r *PostgresRaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	commandTag, err := r.db.GetPool().Exec(ctx, "DELETE FROM races WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete race: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func scanRaces(rows pgx.Rows) ([]*models.Race, error) {
	var races []*models.Race
	for rows.Next() {
		race := &models.Race{}
		err := rows.Scan(
			&race.ID, &race.Season, &race.Round, &race.Name, &race.Circuit,
			&race.ScheduledStart, &race.ActualStart, &race.TotalLaps, &race.Status,
			&race.CreatedAt, &race.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanRace, err)
		}
		races = append(races, race)
	}

	return races, rows.Err()
}
