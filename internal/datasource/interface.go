package datasource

import (
	"context"
	"fmt"
	"time"
)

// DataSource fetches raw timing data for a season. Implementations
// return provider-shaped records; normalization into storage models
// happens in the ingestion service.
type DataSource interface {
	// FetchSessions lists the sessions of a season.
	FetchSessions(ctx context.Context, year int) ([]SessionData, error)
	// FetchResults returns the classification of a session.
	FetchResults(ctx context.Context, sessionKey int) ([]ResultData, error)
	// FetchLaps returns every timed lap of a session.
	FetchLaps(ctx context.Context, sessionKey int) ([]LapData, error)
	// FetchStints returns tyre stint boundaries for a session.
	FetchStints(ctx context.Context, sessionKey int) ([]StintData, error)
	// FetchDrivers returns the entry list for a session.
	FetchDrivers(ctx context.Context, sessionKey int) ([]DriverData, error)
	// FetchTelemetry returns sampled car telemetry for one driver's
	// session, ordered by time.
	FetchTelemetry(ctx context.Context, sessionKey, driverNumber int) ([]TelemetrySample, error)
	// Name returns the data source name.
	Name() string
}

// SessionData represents one session as reported by the provider.
type SessionData struct {
	SessionKey  int       `json:"session_key"`
	MeetingKey  int       `json:"meeting_key"`
	SessionName string    `json:"session_name"`
	SessionType string    `json:"session_type"`
	CircuitName string    `json:"circuit_short_name"`
	CountryName string    `json:"country_name"`
	Year        int       `json:"year"`
	DateStart   time.Time `json:"date_start"`
}

// ResultData is one classified entry of a session.
type ResultData struct {
	SessionKey   int      `json:"session_key"`
	DriverNumber int      `json:"driver_number"`
	Position     *int     `json:"position"`
	GridPosition *int     `json:"grid_position"`
	Points       *float64 `json:"points"`
	Status       string   `json:"status"`
	TimeGap      *float64 `json:"gap_to_leader"`
}

// LapData is one timed lap.
type LapData struct {
	SessionKey     int      `json:"session_key"`
	DriverNumber   int      `json:"driver_number"`
	LapNumber      int      `json:"lap_number"`
	LapDuration    *float64 `json:"lap_duration"`
	Sector1        *float64 `json:"duration_sector_1"`
	Sector2        *float64 `json:"duration_sector_2"`
	Sector3        *float64 `json:"duration_sector_3"`
	IsPitOutLap    bool     `json:"is_pit_out_lap"`
	SpeedTrapKPH   *float64 `json:"st_speed"`
}

// StintData is one tyre stint.
type StintData struct {
	SessionKey   int    `json:"session_key"`
	DriverNumber int    `json:"driver_number"`
	StintNumber  int    `json:"stint_number"`
	Compound     string `json:"compound"`
	LapStart     int    `json:"lap_start"`
	LapEnd       int    `json:"lap_end"`
	TyreAgeStart int    `json:"tyre_age_at_start"`
}

// DriverData is one entry-list row.
type DriverData struct {
	SessionKey   int    `json:"session_key"`
	DriverNumber int    `json:"driver_number"`
	FullName     string `json:"full_name"`
	Abbreviation string `json:"name_acronym"`
	TeamName     string `json:"team_name"`
	CountryCode  string `json:"country_code"`
}

// TelemetrySample is one car-data sample.
type TelemetrySample struct {
	SessionKey   int       `json:"session_key"`
	DriverNumber int       `json:"driver_number"`
	Date         time.Time `json:"date"`
	SpeedKPH     float64   `json:"speed"`
	Throttle     float64   `json:"throttle"`
	Brake        float64   `json:"brake"`
	RPM          float64   `json:"rpm"`
	Gear         int       `json:"n_gear"`
}

// Error codes for data source failures
const (
	ErrCodeNetworkError         = "NETWORK_ERROR"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInvalidData          = "INVALID_DATA"
	ErrCodeServerError          = "SERVER_ERROR"
)

// DataSourceError carries the provider name and a stable error code
// alongside the underlying cause.
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Source, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Source, e.Code, e.Message)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) *DataSourceError {
	return &DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
