// Package models defines the domain types shared across the prediction pipeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionType identifies the session a record belongs to
type SessionType string

const (
	SessionQualifying SessionType = "qualifying"
	SessionSprint     SessionType = "sprint"
	SessionRace       SessionType = "race"
)

// Race represents one Grand Prix weekend
type Race struct {
	ID        uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Year      int       `db:"year" json:"year" validate:"required,gte=1950"`
	Round     int       `db:"round_number" json:"round_number" validate:"required,gt=0"`
	EventName string    `db:"event_name" json:"event_name" validate:"required"`
	Country   string    `db:"country" json:"country"`
	Location  string    `db:"location" json:"location"`
	EventDate time.Time `db:"event_date" json:"event_date" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChronologicalIndex orders races by calendar position. It is the race
// identifier used for grouping and for time-ordered splits: a larger index
// is strictly later in the season sequence.
func (r *Race) ChronologicalIndex() int {
	return r.Year*100 + r.Round
}
