package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresLapRepository implements LapRepository for PostgreSQL
type PostgresLapRepository struct {
	db *database.DB
}

// NewPostgresLapRepository creates a new lap repository
func NewPostgresLapRepository(db *database.DB) LapRepository {
	return &PostgresLapRepository{db: db}
}

// InsertBatch inserts aggregated laps using a bulk COPY
func (r *PostgresLapRepository) InsertBatch(ctx context.Context, laps []*models.LapRecord) error {
	if len(laps) == 0 {
		return nil
	}

	columns := []string{
		"id", "race_id", "session_type", "driver_number", "lap_number", "lap_time",
		"sector1_time", "sector2_time", "sector3_time", "compound", "tyre_life",
		"track_status", "is_personal_best",
	}

	rows := make([][]interface{}, len(laps))
	for i, lap := range laps {
		rows[i] = []interface{}{
			lap.ID, lap.RaceID, lap.SessionType, lap.DriverNumber, lap.LapNumber, lap.LapTime,
			lap.Sector1, lap.Sector2, lap.Sector3, lap.Compound, lap.TyreLife,
			lap.TrackStatus, lap.IsPersonalBest,
		}
	}

	copied, err := r.db.GetPool().CopyFrom(ctx, pgx.Identifier{"aggregated_laps"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert laps: %w", err)
	}
	if copied != int64(len(laps)) {
		return fmt.Errorf("inserted %d laps, expected %d", copied, len(laps))
	}

	return nil
}

// Fetch retrieves laps matching the filter; no match returns an empty slice
func (r *PostgresLapRepository) Fetch(ctx context.Context, filter ObservationFilter) ([]*models.LapRecord, error) {
	query := `
		SELECT id, race_id, session_type, driver_number, lap_number, lap_time,
		       sector1_time, sector2_time, sector3_time, compound, tyre_life,
		       track_status, is_personal_best
		FROM aggregated_laps
	`
	where, args := buildObservationFilter(filter)
	query += where + " ORDER BY driver_number ASC, lap_number ASC"

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query laps: %w", err)
	}
	defer rows.Close()

	var laps []*models.LapRecord
	for rows.Next() {
		lap := &models.LapRecord{}
		err := rows.Scan(
			&lap.ID, &lap.RaceID, &lap.SessionType, &lap.DriverNumber, &lap.LapNumber, &lap.LapTime,
			&lap.Sector1, &lap.Sector2, &lap.Sector3, &lap.Compound, &lap.TyreLife,
			&lap.TrackStatus, &lap.IsPersonalBest,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lap: %w", err)
		}
		laps = append(laps, lap)
	}

	return laps, rows.Err()
}

// InsertTyreStint inserts one tyre stint summary
func (r *PostgresLapRepository) InsertTyreStint(ctx context.Context, stint *models.TyreStint) error {
	query := `
		INSERT INTO tyre_stats (race_id, session_type, driver_number, compound, stint_number,
		                        total_laps, avg_lap_time, best_lap_time, degradation_slope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (race_id, session_type, driver_number, stint_number) DO NOTHING
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		stint.RaceID, stint.SessionType, stint.DriverNumber, stint.Compound, stint.StintNumber,
		stint.TotalLaps, stint.AvgLapTime, stint.BestLapTime, stint.DegradationSlope,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tyre stint: %w", err)
	}

	return nil
}

// FetchTyreStints retrieves tyre stints matching the filter
func (r *PostgresLapRepository) FetchTyreStints(ctx context.Context, filter ObservationFilter) ([]*models.TyreStint, error) {
	query := `
		SELECT race_id, session_type, driver_number, compound, stint_number,
		       total_laps, avg_lap_time, best_lap_time, degradation_slope
		FROM tyre_stats
	`
	where, args := buildObservationFilter(filter)
	query += where + " ORDER BY driver_number ASC, stint_number ASC"

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tyre stints: %w", err)
	}
	defer rows.Close()

	var stints []*models.TyreStint
	for rows.Next() {
		stint := &models.TyreStint{}
		err := rows.Scan(
			&stint.RaceID, &stint.SessionType, &stint.DriverNumber, &stint.Compound, &stint.StintNumber,
			&stint.TotalLaps, &stint.AvgLapTime, &stint.BestLapTime, &stint.DegradationSlope,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tyre stint: %w", err)
		}
		stints = append(stints, stint)
	}

	return stints, rows.Err()
}

// buildObservationFilter assembles a WHERE clause from the optional filter
// fields. Shared by every fetch that is keyed by (race, session, driver).
func buildObservationFilter(filter ObservationFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.RaceID != nil {
		args = append(args, *filter.RaceID)
		clauses = append(clauses, fmt.Sprintf("race_id = $%d", len(args)))
	}
	if filter.SessionType != nil {
		args = append(args, *filter.SessionType)
		clauses = append(clauses, fmt.Sprintf("session_type = $%d", len(args)))
	}
	if filter.DriverNumber != nil {
		args = append(args, *filter.DriverNumber)
		clauses = append(clauses, fmt.Sprintf("driver_number = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
