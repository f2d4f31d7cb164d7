package database

import (
	"context"
	"fmt"

	"github.com/yourusername/gridline/internal/config"
)

// schema holds all table definitions used by the prediction store. Statements
// are idempotent so Initialize can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id UUID PRIMARY KEY,
		driver_number INTEGER NOT NULL,
		abbreviation TEXT NOT NULL,
		full_name TEXT NOT NULL,
		team_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		UNIQUE (driver_number, year)
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY,
		team_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		UNIQUE (team_name, year)
	)`,
	`CREATE TABLE IF NOT EXISTS races (
		id UUID PRIMARY KEY,
		year INTEGER NOT NULL,
		round_number INTEGER NOT NULL,
		event_name TEXT NOT NULL,
		country TEXT,
		location TEXT,
		event_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (year, round_number)
	)`,
	`CREATE TABLE IF NOT EXISTS qualifying_results (
		id UUID PRIMARY KEY,
		race_id UUID NOT NULL REFERENCES races(id),
		driver_number INTEGER NOT NULL,
		position INTEGER NOT NULL,
		q1_time DOUBLE PRECISION,
		q2_time DOUBLE PRECISION,
		q3_time DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS race_results (
		id UUID PRIMARY KEY,
		race_id UUID NOT NULL REFERENCES races(id),
		session_type TEXT NOT NULL,
		driver_number INTEGER NOT NULL,
		position INTEGER NOT NULL,
		grid_position INTEGER,
		points NUMERIC NOT NULL DEFAULT 0,
		status TEXT,
		fastest_lap_time DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS aggregated_laps (
		id UUID PRIMARY KEY,
		race_id UUID NOT NULL REFERENCES races(id),
		session_type TEXT NOT NULL,
		driver_number INTEGER NOT NULL,
		lap_number INTEGER NOT NULL,
		lap_time DOUBLE PRECISION,
		sector1_time DOUBLE PRECISION,
		sector2_time DOUBLE PRECISION,
		sector3_time DOUBLE PRECISION,
		compound TEXT,
		tyre_life INTEGER,
		track_status TEXT,
		is_personal_best BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS tyre_stats (
		race_id UUID NOT NULL REFERENCES races(id),
		session_type TEXT NOT NULL,
		driver_number INTEGER NOT NULL,
		compound TEXT NOT NULL,
		stint_number INTEGER NOT NULL,
		total_laps INTEGER,
		avg_lap_time DOUBLE PRECISION,
		best_lap_time DOUBLE PRECISION,
		degradation_slope DOUBLE PRECISION,
		PRIMARY KEY (race_id, session_type, driver_number, stint_number)
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry_traces (
		race_id UUID NOT NULL REFERENCES races(id),
		session_type TEXT NOT NULL,
		driver_number INTEGER NOT NULL,
		trace_json JSONB NOT NULL,
		PRIMARY KEY (race_id, session_type, driver_number)
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		race_id UUID NOT NULL REFERENCES races(id),
		session_type TEXT NOT NULL,
		driver_number INTEGER NOT NULL,
		predicted_position DOUBLE PRECISION NOT NULL,
		predicted_time DOUBLE PRECISION,
		confidence DOUBLE PRECISION NOT NULL,
		top10_probability DOUBLE PRECISION,
		model_type TEXT NOT NULL,
		features_json JSONB,
		attributions_json JSONB,
		predicted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS models (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		version TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		blob_path TEXT NOT NULL,
		meta_path TEXT NOT NULL,
		metrics JSONB,
		trained_at TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_race ON predictions (race_id, session_type)`,
	`CREATE INDEX IF NOT EXISTS idx_laps_race_driver ON aggregated_laps (race_id, session_type, driver_number)`,
	`CREATE INDEX IF NOT EXISTS idx_results_race ON race_results (race_id, session_type)`,
}

// Initialize creates the connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return db, nil
}
