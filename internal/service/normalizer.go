// Package service orchestrates ingestion, training and prediction on
// top of the repositories and the model bank.
package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/datasource"
	"github.com/yourusername/gridline/internal/models"
)

// DataNormalizer converts provider-shaped timing records into storage
// models.
type DataNormalizer struct {
	sessionTypeMap map[string]models.SessionType
	logger         *logrus.Logger
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer(logger *logrus.Logger) *DataNormalizer {
	return &DataNormalizer{
		sessionTypeMap: buildSessionTypeMap(),
		logger:         logger,
	}
}

// NormalizeRace converts a provider session into a Race. The round
// number comes from the session's position in the season, which the
// caller tracks.
func (n *DataNormalizer) NormalizeRace(session *datasource.SessionData, round int) (*models.Race, error) {
	if session == nil {
		return nil, fmt.Errorf("source session is nil")
	}
	if session.Year < 1950 {
		return nil, fmt.Errorf("implausible season year %d", session.Year)
	}

	return &models.Race{
		ID:        uuid.New(),
		Year:      session.Year,
		Round:     round,
		EventName: strings.TrimSpace(session.SessionName),
		Country:   session.CountryName,
		Location:  session.CircuitName,
		EventDate: session.DateStart,
		CreatedAt: time.Now(),
	}, nil
}

// NormalizeSessionType maps a provider session type string onto the
// internal enum.
func (n *DataNormalizer) NormalizeSessionType(raw string) (models.SessionType, bool) {
	st, ok := n.sessionTypeMap[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

// NormalizeResult converts one classified entry. Unclassified entries
// (no position) return nil without error; they carry no target.
func (n *DataNormalizer) NormalizeResult(raceID uuid.UUID, sessionType models.SessionType, src *datasource.ResultData) (*models.RaceResult, error) {
	if src == nil {
		return nil, fmt.Errorf("source result is nil")
	}
	if src.Position == nil {
		return nil, nil
	}
	if *src.Position < 1 {
		return nil, fmt.Errorf("invalid position %d for driver %d", *src.Position, src.DriverNumber)
	}

	result := &models.RaceResult{
		ID:           uuid.New(),
		RaceID:       raceID,
		SessionType:  sessionType,
		DriverNumber: src.DriverNumber,
		Position:     *src.Position,
		Status:       src.Status,
	}
	if src.GridPosition != nil {
		result.GridPosition = *src.GridPosition
	}
	if src.Points != nil {
		result.Points = decimal.NewFromFloat(*src.Points)
	}
	return result, nil
}

// NormalizeLap converts one timed lap, skipping laps without a
// duration (in/out laps, red flags).
func (n *DataNormalizer) NormalizeLap(raceID uuid.UUID, sessionType models.SessionType, src *datasource.LapData) *models.LapRecord {
	if src == nil || src.LapDuration == nil || *src.LapDuration <= 0 || src.IsPitOutLap {
		return nil
	}

	lap := &models.LapRecord{
		ID:           uuid.New(),
		RaceID:       raceID,
		SessionType:  sessionType,
		DriverNumber: src.DriverNumber,
		LapNumber:    src.LapNumber,
		LapTime:      *src.LapDuration,
	}
	if src.Sector1 != nil {
		lap.Sector1 = *src.Sector1
	}
	if src.Sector2 != nil {
		lap.Sector2 = *src.Sector2
	}
	if src.Sector3 != nil {
		lap.Sector3 = *src.Sector3
	}
	return lap
}

// NormalizeDriver converts one entry-list row.
func (n *DataNormalizer) NormalizeDriver(year int, src *datasource.DriverData) (*models.Driver, error) {
	if src == nil {
		return nil, fmt.Errorf("source driver is nil")
	}
	if src.DriverNumber < 1 {
		return nil, fmt.Errorf("invalid driver number %d", src.DriverNumber)
	}

	return &models.Driver{
		ID:           uuid.New(),
		Number:       src.DriverNumber,
		FullName:     strings.TrimSpace(src.FullName),
		Abbreviation: strings.ToUpper(strings.TrimSpace(src.Abbreviation)),
		TeamName:     strings.TrimSpace(src.TeamName),
		Year:         year,
	}, nil
}

// ParseLapTime parses a lap time in "M:SS.mmm" or plain seconds form
// into seconds.
func ParseLapTime(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty lap time")
	}

	if idx := strings.IndexByte(raw, ':'); idx >= 0 {
		minutes, err := strconv.Atoi(raw[:idx])
		if err != nil || minutes < 0 {
			return 0, fmt.Errorf("invalid minutes in lap time %q", raw)
		}
		seconds, err := strconv.ParseFloat(raw[idx+1:], 64)
		if err != nil || seconds < 0 || seconds >= 60 {
			return 0, fmt.Errorf("invalid seconds in lap time %q", raw)
		}
		return float64(minutes)*60 + seconds, nil
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid lap time %q", raw)
	}
	return seconds, nil
}

func buildSessionTypeMap() map[string]models.SessionType {
	return map[string]models.SessionType{
		"qualifying":        models.SessionQualifying,
		"sprint qualifying": models.SessionQualifying,
		"sprint shootout":   models.SessionQualifying,
		"sprint":            models.SessionSprint,
		"race":              models.SessionRace,
	}
}
