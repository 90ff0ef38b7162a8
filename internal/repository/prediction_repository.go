package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/models"
)

const predictionColumns = `race_id, driver_id, driver, team, grid_position, win_probability,
	podium_probability, top10_probability, dnf_probability, avg_finish_position,
	simulation_count, model_version, predicted_at`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// InsertBatch stores one simulation run's full field of predictions
func (p *PostgresPredictionRepository) InsertBatch(ctx context.Context, predictions []models.PredictionResult) error {
	if len(predictions) == 0 {
		return nil
	}
	return p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return insertPredictions(ctx, tx, predictions)
	})
}

// ReplaceForRace swaps the stored predictions for a race inside one
// transaction. A failure mid-replace rolls back to the previous batch
// instead of leaving the race empty.
func (p *PostgresPredictionRepository) ReplaceForRace(ctx context.Context, raceID uuid.UUID, predictions []models.PredictionResult) error {
	return p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM predictions WHERE race_id = $1", raceID); err != nil {
			return fmt.Errorf("failed to clear predictions: %w", err)
		}
		if len(predictions) == 0 {
			return nil
		}
		return insertPredictions(ctx, tx, predictions)
	})
}

// insertPredictions queues the full field as one pgx batch on the
// caller's transaction.
func insertPredictions(ctx context.Context, tx pgx.Tx, predictions []models.PredictionResult) error {
	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	batch := &pgx.Batch{}
	for _, pred := range predictions {
		batch.Queue(query,
			pred.RaceID, pred.DriverID, pred.Driver, pred.Team, pred.GridPosition,
			pred.WinProbability, pred.PodiumProbability, pred.Top10Probability,
			pred.DNFProbability, pred.AvgFinishPosition, pred.SimulationCount,
			pred.ModelVersion, pred.PredictedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range predictions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert prediction: %w", err)
		}
	}
	return nil
}

// GetByRaceID retrieves the stored predictions for a race, best first
func (p *PostgresPredictionRepository) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.PredictionResult, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE race_id = $1
		ORDER BY win_probability DESC, avg_finish_position ASC
	`

	rows, err := p.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []models.PredictionResult
	for rows.Next() {
		var pred models.PredictionResult
		err := rows.Scan(
			&pred.RaceID, &pred.DriverID, &pred.Driver, &pred.Team, &pred.GridPosition,
			&pred.WinProbability, &pred.PodiumProbability, &pred.Top10Probability,
			&pred.DNFProbability, &pred.AvgFinishPosition, &pred.SimulationCount,
			&pred.ModelVersion, &pred.PredictedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, pred)
	}

	return predictions, rows.Err()
}

// DeleteByRaceID removes stored predictions for a race
func (p *PostgresPredictionRepository) DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error {
	_, err := p.db.GetPool().Exec(ctx, "DELETE FROM predictions WHERE race_id = $1", raceID)
	if err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}
	return nil
}
