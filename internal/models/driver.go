package models

import "github.com/google/uuid"

// Driver represents a driver entry for one season
type Driver struct {
	ID           uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Number       int       `db:"driver_number" json:"driver_number" validate:"required,gt=0"`
	Abbreviation string    `db:"abbreviation" json:"abbreviation" validate:"required,len=3"`
	FullName     string    `db:"full_name" json:"full_name" validate:"required"`
	TeamName     string    `db:"team_name" json:"team_name" validate:"required"`
	Year         int       `db:"year" json:"year" validate:"required,gte=1950"`
}

// Team represents a constructor entry for one season
type Team struct {
	ID   uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Name string    `db:"team_name" json:"team_name" validate:"required"`
	Year int       `db:"year" json:"year" validate:"required,gte=1950"`
}
