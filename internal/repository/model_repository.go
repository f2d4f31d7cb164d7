package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresModelRepository implements ModelRepository for PostgreSQL
type PostgresModelRepository struct {
	db *database.DB
}

// NewPostgresModelRepository creates a new model artifact repository
func NewPostgresModelRepository(db *database.DB) ModelRepository {
	return &PostgresModelRepository{db: db}
}

// Create inserts a new model artifact record. Artifacts are immutable:
// retraining creates a new row rather than updating an existing one.
func (m *PostgresModelRepository) Create(ctx context.Context, artifact *models.ModelArtifact) error {
	query := `
		INSERT INTO models (id, name, version, algorithm, blob_path, meta_path, metrics, trained_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := m.db.GetPool().Exec(ctx, query,
		artifact.ID, artifact.Name, artifact.Version, artifact.Algorithm,
		artifact.BlobPath, artifact.MetaPath, artifact.Metrics, artifact.TrainedAt, artifact.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}

	return nil
}

// GetByID retrieves a model artifact by ID
func (m *PostgresModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, algorithm, blob_path, meta_path, metrics, trained_at, active, created_at, updated_at
		FROM models WHERE id = $1
	`

	artifact := &models.ModelArtifact{}
	err := m.db.GetPool().QueryRow(ctx, query, id).Scan(
		&artifact.ID, &artifact.Name, &artifact.Version, &artifact.Algorithm, &artifact.BlobPath,
		&artifact.MetaPath, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
		&artifact.CreatedAt, &artifact.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model artifact: %w", err)
	}

	return artifact, nil
}

// GetActive retrieves all active model artifacts
func (m *PostgresModelRepository) GetActive(ctx context.Context) ([]*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, algorithm, blob_path, meta_path, metrics, trained_at, active, created_at, updated_at
		FROM models
		WHERE active = true
		ORDER BY name ASC, version DESC
	`

	rows, err := m.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active model artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.ModelArtifact
	for rows.Next() {
		artifact := &models.ModelArtifact{}
		err := rows.Scan(
			&artifact.ID, &artifact.Name, &artifact.Version, &artifact.Algorithm, &artifact.BlobPath,
			&artifact.MetaPath, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
			&artifact.CreatedAt, &artifact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

// List retrieves the most recently trained artifacts, newest first
func (m *PostgresModelRepository) List(ctx context.Context, limit int) ([]*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, algorithm, blob_path, meta_path, metrics, trained_at, active, created_at, updated_at
		FROM models
		ORDER BY trained_at DESC
		LIMIT $1
	`

	rows, err := m.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query model artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.ModelArtifact
	for rows.Next() {
		artifact := &models.ModelArtifact{}
		err := rows.Scan(
			&artifact.ID, &artifact.Name, &artifact.Version, &artifact.Algorithm, &artifact.BlobPath,
			&artifact.MetaPath, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
			&artifact.CreatedAt, &artifact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

// GetByVersion retrieves a specific artifact version
func (m *PostgresModelRepository) GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, algorithm, blob_path, meta_path, metrics, trained_at, active, created_at, updated_at
		FROM models
		WHERE name = $1 AND version = $2
	`

	artifact := &models.ModelArtifact{}
	err := m.db.GetPool().QueryRow(ctx, query, name, version).Scan(
		&artifact.ID, &artifact.Name, &artifact.Version, &artifact.Algorithm, &artifact.BlobPath,
		&artifact.MetaPath, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
		&artifact.CreatedAt, &artifact.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model artifact by version: %w", err)
	}

	return artifact, nil
}

// SetActive marks one artifact active and deactivates other versions of the same name
func (m *PostgresModelRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	artifact, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := m.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "UPDATE models SET active = false, updated_at = NOW() WHERE name = $1 AND id != $2", artifact.Name, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate other versions: %w", err)
	}

	_, err = tx.Exec(ctx, "UPDATE models SET active = true, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to activate model artifact: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
