package models

import "github.com/google/uuid"

// LapRecord represents one aggregated lap for a driver in a session
type LapRecord struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	RaceID         uuid.UUID   `db:"race_id" json:"race_id" validate:"required,uuid4"`
	SessionType    SessionType `db:"session_type" json:"session_type" validate:"required"`
	DriverNumber   int         `db:"driver_number" json:"driver_number" validate:"required,gt=0"`
	LapNumber      int         `db:"lap_number" json:"lap_number" validate:"required,gt=0"`
	LapTime        float64     `db:"lap_time" json:"lap_time"`
	Sector1        float64     `db:"sector1_time" json:"sector1_time"`
	Sector2        float64     `db:"sector2_time" json:"sector2_time"`
	Sector3        float64     `db:"sector3_time" json:"sector3_time"`
	Compound       string      `db:"compound" json:"compound"`
	TyreLife       int         `db:"tyre_life" json:"tyre_life"`
	TrackStatus    string      `db:"track_status" json:"track_status"`
	IsPersonalBest bool        `db:"is_personal_best" json:"is_personal_best"`
}

// TyreStint summarizes one stint on a tyre compound
type TyreStint struct {
	RaceID           uuid.UUID   `db:"race_id" json:"race_id"`
	SessionType      SessionType `db:"session_type" json:"session_type"`
	DriverNumber     int         `db:"driver_number" json:"driver_number"`
	Compound         string      `db:"compound" json:"compound"`
	StintNumber      int         `db:"stint_number" json:"stint_number"`
	TotalLaps        int         `db:"total_laps" json:"total_laps"`
	AvgLapTime       float64     `db:"avg_lap_time" json:"avg_lap_time"`
	BestLapTime      float64     `db:"best_lap_time" json:"best_lap_time"`
	DegradationSlope float64     `db:"degradation_slope" json:"degradation_slope"`
}

// TelemetryTrace holds raw per-sample channels for one lap. Channels are
// parallel arrays; consumers must tolerate empty or short traces.
type TelemetryTrace struct {
	Speed    []float64 `json:"speed"`
	Throttle []float64 `json:"throttle"`
	Brake    []float64 `json:"brake"`
	Distance []float64 `json:"distance"`
}
