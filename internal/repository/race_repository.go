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

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(db *database.DB) RaceRepository {
	return &PostgresRaceRepository{db: db}
}

// Create inserts a new race. Re-ingesting an existing (year, round)
// keeps the stored row and rewrites race.ID to its canonical value so
// child rows always reference the stored race.
func (r *PostgresRaceRepository) Create(ctx context.Context, race *models.Race) error {
	query := `
		INSERT INTO races (id, year, round_number, event_name, country, location, event_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (year, round_number) DO UPDATE SET event_name = EXCLUDED.event_name
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		race.ID, race.Year, race.Round, race.EventName, race.Country, race.Location, race.EventDate,
	).Scan(&race.ID)
	if err != nil {
		return fmt.Errorf("failed to create race: %w", err)
	}

	return nil
}

// GetByID retrieves a race by ID
func (r *PostgresRaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	query := `
		SELECT id, year, round_number, event_name, country, location, event_date, created_at
		FROM races WHERE id = $1
	`

	race := &models.Race{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&race.ID, &race.Year, &race.Round, &race.EventName, &race.Country, &race.Location, &race.EventDate, &race.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}

	return race, nil
}

// GetBySeason retrieves all races for a season in calendar order
func (r *PostgresRaceRepository) GetBySeason(ctx context.Context, year int) ([]*models.Race, error) {
	query := `
		SELECT id, year, round_number, event_name, country, location, event_date, created_at
		FROM races
		WHERE year = $1
		ORDER BY round_number ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// GetAllChronological retrieves every race ordered by season then round.
// This ordering is what time-ordered training splits rely on.
func (r *PostgresRaceRepository) GetAllChronological(ctx context.Context) ([]*models.Race, error) {
	query := `
		SELECT id, year, round_number, event_name, country, location, event_date, created_at
		FROM races
		ORDER BY year ASC, round_number ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

func scanRaces(rows pgx.Rows) ([]*models.Race, error) {
	var races []*models.Race
	for rows.Next() {
		race := &models.Race{}
		err := rows.Scan(
			&race.ID, &race.Year, &race.Round, &race.EventName, &race.Country, &race.Location, &race.EventDate, &race.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}

	return races, rows.Err()
}
