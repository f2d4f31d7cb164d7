package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresTelemetryRepository implements TelemetryRepository for PostgreSQL
type PostgresTelemetryRepository struct {
	db *database.DB
}

// NewPostgresTelemetryRepository creates a new telemetry repository
func NewPostgresTelemetryRepository(db *database.DB) TelemetryRepository {
	return &PostgresTelemetryRepository{db: db}
}

// Upsert stores one trace, replacing any previous trace for the key
func (r *PostgresTelemetryRepository) Upsert(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int, trace *models.TelemetryTrace) error {
	raw, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry trace: %w", err)
	}

	query := `
		INSERT INTO telemetry_traces (race_id, session_type, driver_number, trace_json)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (race_id, session_type, driver_number)
		DO UPDATE SET trace_json = EXCLUDED.trace_json
	`
	if _, err := r.db.GetPool().Exec(ctx, query, raceID, session, driverNumber, raw); err != nil {
		return fmt.Errorf("failed to upsert telemetry trace: %w", err)
	}
	return nil
}

// Get retrieves one trace, or (nil, nil) when none was ingested
func (r *PostgresTelemetryRepository) Get(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int) (*models.TelemetryTrace, error) {
	query := `
		SELECT trace_json
		FROM telemetry_traces
		WHERE race_id = $1 AND session_type = $2 AND driver_number = $3
	`

	var raw []byte
	err := r.db.GetPool().QueryRow(ctx, query, raceID, session, driverNumber).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry trace: %w", err)
	}

	trace := &models.TelemetryTrace{}
	if err := json.Unmarshal(raw, trace); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry trace: %w", err)
	}
	return trace, nil
}
