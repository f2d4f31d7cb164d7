package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RaceResult represents a driver's classified finish in a race or sprint
type RaceResult struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	RaceID       uuid.UUID       `db:"race_id" json:"race_id" validate:"required,uuid4"`
	SessionType  SessionType     `db:"session_type" json:"session_type" validate:"required"`
	DriverNumber int             `db:"driver_number" json:"driver_number" validate:"required,gt=0"`
	Position     int             `db:"position" json:"position" validate:"required,gt=0"`
	GridPosition int             `db:"grid_position" json:"grid_position"`
	Points       decimal.Decimal `db:"points" json:"points"`
	Status       string          `db:"status" json:"status"`
	FastestLap   float64         `db:"fastest_lap_time" json:"fastest_lap_time"`
}

// Finished reports whether the driver was classified as a finisher
func (r *RaceResult) Finished() bool {
	return r.Status == "Finished" || r.Status == "+1 Lap" || r.Status == "+2 Laps"
}

// QualifyingResult represents a driver's qualifying classification
type QualifyingResult struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RaceID       uuid.UUID `db:"race_id" json:"race_id" validate:"required,uuid4"`
	DriverNumber int       `db:"driver_number" json:"driver_number" validate:"required,gt=0"`
	Position     int       `db:"position" json:"position" validate:"required,gt=0"`
	Q1           float64   `db:"q1_time" json:"q1_time"`
	Q2           float64   `db:"q2_time" json:"q2_time"`
	Q3           float64   `db:"q3_time" json:"q3_time"`
}
