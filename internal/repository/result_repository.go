package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// Insert inserts a single classified result
func (r *PostgresResultRepository) Insert(ctx context.Context, result *models.RaceResult) error {
	query := `
		INSERT INTO race_results (id, race_id, session_type, driver_number, position,
		                          grid_position, points, status, fastest_lap_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		result.ID, result.RaceID, result.SessionType, result.DriverNumber, result.Position,
		result.GridPosition, result.Points, result.Status, result.FastestLap,
	)
	if err != nil {
		return fmt.Errorf("failed to insert race result: %w", err)
	}

	return nil
}

// Fetch retrieves results matching the filter; no match returns an empty slice
func (r *PostgresResultRepository) Fetch(ctx context.Context, filter ObservationFilter) ([]*models.RaceResult, error) {
	query := `
		SELECT id, race_id, session_type, driver_number, position,
		       grid_position, points, status, fastest_lap_time
		FROM race_results
	`
	where, args := buildObservationFilter(filter)
	query += where + " ORDER BY position ASC"

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query race results: %w", err)
	}
	defer rows.Close()

	var results []*models.RaceResult
	for rows.Next() {
		result := &models.RaceResult{}
		err := rows.Scan(
			&result.ID, &result.RaceID, &result.SessionType, &result.DriverNumber, &result.Position,
			&result.GridPosition, &result.Points, &result.Status, &result.FastestLap,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// InsertQualifying inserts one qualifying classification
func (r *PostgresResultRepository) InsertQualifying(ctx context.Context, result *models.QualifyingResult) error {
	query := `
		INSERT INTO qualifying_results (id, race_id, driver_number, position, q1_time, q2_time, q3_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		result.ID, result.RaceID, result.DriverNumber, result.Position, result.Q1, result.Q2, result.Q3,
	)
	if err != nil {
		return fmt.Errorf("failed to insert qualifying result: %w", err)
	}

	return nil
}

// FetchQualifying retrieves all qualifying classifications for a race
func (r *PostgresResultRepository) FetchQualifying(ctx context.Context, raceID uuid.UUID) ([]*models.QualifyingResult, error) {
	query := `
		SELECT id, race_id, driver_number, position, q1_time, q2_time, q3_time
		FROM qualifying_results
		WHERE race_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query qualifying results: %w", err)
	}
	defer rows.Close()

	var results []*models.QualifyingResult
	for rows.Next() {
		result := &models.QualifyingResult{}
		err := rows.Scan(&result.ID, &result.RaceID, &result.DriverNumber, &result.Position, &result.Q1, &result.Q2, &result.Q3)
		if err != nil {
			return nil, fmt.Errorf("failed to scan qualifying result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
