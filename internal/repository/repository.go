package repository

import (
	"fmt"

	"github.com/yourusername/gridline/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Races       RaceRepository
	Drivers     DriverRepository
	Laps        LapRepository
	Telemetry   TelemetryRepository
	Results     ResultRepository
	Predictions PredictionRepository
	Models      ModelRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Races:       NewPostgresRaceRepository(db),
		Drivers:     NewPostgresDriverRepository(db),
		Laps:        NewPostgresLapRepository(db),
		Telemetry:   NewPostgresTelemetryRepository(db),
		Results:     NewPostgresResultRepository(db),
		Predictions: NewPostgresPredictionRepository(db),
		Models:      NewPostgresModelRepository(db),
	}, nil
}
