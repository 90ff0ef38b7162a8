package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/models"
)

// PostgresArtifactRepository implements ArtifactRepository for PostgreSQL.
// Artifacts are stored as JSONB blobs keyed by model version; a single
// is_latest flag marks the serving model.
type PostgresArtifactRepository struct {
	db *database.DB
}

// NewPostgresArtifactRepository creates a new artifact repository
func NewPostgresArtifactRepository(db *database.DB) ArtifactRepository {
	return &PostgresArtifactRepository{db: db}
}

// Save persists a trained artifact without promoting it
func (a *PostgresArtifactRepository) Save(ctx context.Context, artifact *models.TrainedModelArtifact) error {
	payload, err := artifact.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	query := `
		INSERT INTO model_artifacts (model_version, artifact, training_races, trained_at, is_latest)
		VALUES ($1, $2, $3, $4, false)
		ON CONFLICT (model_version) DO UPDATE SET
			artifact = EXCLUDED.artifact,
			training_races = EXCLUDED.training_races,
			trained_at = EXCLUDED.trained_at
	`

	_, err = a.db.GetPool().Exec(ctx, query,
		artifact.ModelVersion, payload, artifact.TrainingRaces, artifact.TrainedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	return nil
}

// GetByVersion retrieves a specific artifact version
func (a *PostgresArtifactRepository) GetByVersion(ctx context.Context, modelVersion string) (*models.TrainedModelArtifact, error) {
	var payload []byte
	err := a.db.GetPool().QueryRow(ctx,
		"SELECT artifact FROM model_artifacts WHERE model_version = $1", modelVersion,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	artifact, err := models.UnmarshalArtifact(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", modelVersion, err)
	}
	return artifact, nil
}

// GetLatest retrieves the artifact currently marked for serving
func (a *PostgresArtifactRepository) GetLatest(ctx context.Context) (*models.TrainedModelArtifact, error) {
	var payload []byte
	err := a.db.GetPool().QueryRow(ctx,
		"SELECT artifact FROM model_artifacts WHERE is_latest = true",
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, models.ErrModelNotTrained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest artifact: %w", err)
	}

	artifact, err := models.UnmarshalArtifact(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest artifact: %w", err)
	}
	return artifact, nil
}

// SetLatest atomically moves the serving flag to the given version
func (a *PostgresArtifactRepository) SetLatest(ctx context.Context, modelVersion string) error {
	return a.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "UPDATE model_artifacts SET is_latest = false WHERE is_latest = true"); err != nil {
			return fmt.Errorf("failed to clear latest flag: %w", err)
		}

		commandTag, err := tx.Exec(ctx,
			"UPDATE model_artifacts SET is_latest = true WHERE model_version = $1", modelVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to set latest artifact: %w", err)
		}
		if commandTag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// ListVersions retrieves the most recent artifact versions
func (a *PostgresArtifactRepository) ListVersions(ctx context.Context, limit int) ([]string, error) {
	rows, err := a.db.GetPool().Query(ctx,
		"SELECT model_version FROM model_artifacts ORDER BY trained_at DESC LIMIT $1", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan artifact version: %w", err)
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}
