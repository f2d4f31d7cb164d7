// Package repository provides PostgreSQL data access for the prediction store.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/gridline/internal/models"
)

// ObservationFilter narrows fetches by race, session and driver. Nil fields
// match everything; fetches with no matches return empty slices, not errors.
type ObservationFilter struct {
	RaceID       *uuid.UUID
	SessionType  *models.SessionType
	DriverNumber *int
}

// RaceRepository defines the interface for race data access
type RaceRepository interface {
	Create(ctx context.Context, race *models.Race) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error)
	GetBySeason(ctx context.Context, year int) ([]*models.Race, error)
	GetAllChronological(ctx context.Context) ([]*models.Race, error)
}

// DriverRepository defines the interface for driver and team data access
type DriverRepository interface {
	Upsert(ctx context.Context, driver *models.Driver) error
	GetBySeason(ctx context.Context, year int) ([]*models.Driver, error)
	GetByNumber(ctx context.Context, number, year int) (*models.Driver, error)
}

// LapRepository defines the interface for aggregated lap and tyre stint access
type LapRepository interface {
	InsertBatch(ctx context.Context, laps []*models.LapRecord) error
	Fetch(ctx context.Context, filter ObservationFilter) ([]*models.LapRecord, error)
	InsertTyreStint(ctx context.Context, stint *models.TyreStint) error
	FetchTyreStints(ctx context.Context, filter ObservationFilter) ([]*models.TyreStint, error)
}

// TelemetryRepository stores downsampled per-session telemetry traces.
// Get returns (nil, nil) when no trace was ingested for the key.
type TelemetryRepository interface {
	Upsert(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int, trace *models.TelemetryTrace) error
	Get(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int) (*models.TelemetryTrace, error)
}

// ResultRepository defines the interface for race and qualifying results
type ResultRepository interface {
	Insert(ctx context.Context, result *models.RaceResult) error
	Fetch(ctx context.Context, filter ObservationFilter) ([]*models.RaceResult, error)
	InsertQualifying(ctx context.Context, result *models.QualifyingResult) error
	FetchQualifying(ctx context.Context, raceID uuid.UUID) ([]*models.QualifyingResult, error)
}

// PredictionRepository defines the interface for prediction persistence.
// Predictions are insert-only; a corrected prediction is a new row.
type PredictionRepository interface {
	Insert(ctx context.Context, prediction *models.Prediction) error
	InsertBatch(ctx context.Context, predictions []*models.Prediction) error
	Fetch(ctx context.Context, filter ObservationFilter) ([]*models.Prediction, error)
}

// ModelRepository defines the interface for trained model artifact records
type ModelRepository interface {
	Create(ctx context.Context, artifact *models.ModelArtifact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error)
	GetActive(ctx context.Context) ([]*models.ModelArtifact, error)
	List(ctx context.Context, limit int) ([]*models.ModelArtifact, error)
	GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error)
	SetActive(ctx context.Context, id uuid.UUID) error
}
