package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresDriverRepository implements DriverRepository for PostgreSQL
type PostgresDriverRepository struct {
	db *database.DB
}

// NewPostgresDriverRepository creates a new driver repository
func NewPostgresDriverRepository(db *database.DB) DriverRepository {
	return &PostgresDriverRepository{db: db}
}

// Upsert inserts a driver entry or refreshes its team assignment
func (r *PostgresDriverRepository) Upsert(ctx context.Context, driver *models.Driver) error {
	query := `
		INSERT INTO drivers (id, driver_number, abbreviation, full_name, team_name, year)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (driver_number, year) DO UPDATE
		SET abbreviation = EXCLUDED.abbreviation,
		    full_name = EXCLUDED.full_name,
		    team_name = EXCLUDED.team_name
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		driver.ID, driver.Number, driver.Abbreviation, driver.FullName, driver.TeamName, driver.Year,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert driver: %w", err)
	}

	return nil
}

// GetBySeason retrieves all driver entries for a season
func (r *PostgresDriverRepository) GetBySeason(ctx context.Context, year int) ([]*models.Driver, error) {
	query := `
		SELECT id, driver_number, abbreviation, full_name, team_name, year
		FROM drivers
		WHERE year = $1
		ORDER BY driver_number ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		driver := &models.Driver{}
		err := rows.Scan(&driver.ID, &driver.Number, &driver.Abbreviation, &driver.FullName, &driver.TeamName, &driver.Year)
		if err != nil {
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}
		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}

// GetByNumber retrieves one driver entry by car number and season
func (r *PostgresDriverRepository) GetByNumber(ctx context.Context, number, year int) (*models.Driver, error) {
	query := `
		SELECT id, driver_number, abbreviation, full_name, team_name, year
		FROM drivers
		WHERE driver_number = $1 AND year = $2
	`

	driver := &models.Driver{}
	err := r.db.GetPool().QueryRow(ctx, query, number, year).Scan(
		&driver.ID, &driver.Number, &driver.Abbreviation, &driver.FullName, &driver.TeamName, &driver.Year,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	return driver, nil
}
