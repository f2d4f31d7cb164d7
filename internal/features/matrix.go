package features

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/gridline/internal/models"
)

// Superset is the full, documented column set the builder can emit, in
// output order. Models may train on any subset of these; the subset actually
// used is frozen into the trained artifact.
var Superset = []string{
	"qualifying_position",
	"grid_position",
	"lap_time",
	"sector1",
	"sector2",
	"sector3",
	"tyre_life",
	"tyre_degradation",
	"median_speed",
	"percentile_95_speed",
	"max_speed",
	"throttle_variance",
	"brake_variance",
	"smoothness",
	"corner_entry_speed",
	"apex_speed",
	"corner_exit_speed",
	"delta_entry_exit",
	"driver_form",
	"driver_avg_position",
	"driver_races",
	"team_avg_position",
	"driver_track_experience",
	"team_track_performance",
	"driver_team_synergy",
	"uncertainty",
	"points_before_race",
}

// DefaultRecord marks one neutral-default substitution so callers and tests
// can distinguish "a real value was computed" from "the default was used".
type DefaultRecord struct {
	Row    int
	Column string
	Reason string
}

// Matrix is the flat race-grouped feature table consumed by every model.
// Rows sharing a Groups value belong to the same race.
type Matrix struct {
	Columns  []string
	Rows     [][]float64
	Target   []float64
	Groups   []int
	Drivers  []int
	RaceIDs  []uuid.UUID
	Sessions []models.SessionType
	Defaults []DefaultRecord
}

// NumRows returns the observation count
func (m *Matrix) NumRows() int {
	return len(m.Rows)
}

// ColumnIndex returns the position of a named column, or -1
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select returns a new matrix restricted to the requested columns, silently
// skipping ones this matrix does not carry. The second return value lists
// the columns actually kept, in order. Selecting down to zero columns is a
// hard input error.
func (m *Matrix) Select(wanted []string) (*Matrix, []string, error) {
	var keep []int
	var kept []string
	for _, w := range wanted {
		if idx := m.ColumnIndex(w); idx >= 0 {
			keep = append(keep, idx)
			kept = append(kept, w)
		}
	}
	if len(keep) == 0 {
		return nil, nil, models.ErrNoFeatureColumns
	}

	out := &Matrix{
		Columns:  kept,
		Rows:     make([][]float64, len(m.Rows)),
		Target:   m.Target,
		Groups:   m.Groups,
		Drivers:  m.Drivers,
		RaceIDs:  m.RaceIDs,
		Sessions: m.Sessions,
		Defaults: m.Defaults,
	}
	for i, row := range m.Rows {
		selected := make([]float64, len(keep))
		for j, idx := range keep {
			selected[j] = row[idx]
		}
		out.Rows[i] = selected
	}
	return out, kept, nil
}

// RowSnapshot returns one row as a name→value map for prediction persistence
func (m *Matrix) RowSnapshot(row int) map[string]float64 {
	snap := make(map[string]float64, len(m.Columns))
	for j, c := range m.Columns {
		snap[c] = m.Rows[row][j]
	}
	return snap
}

// Observation is one (race, session, driver) input to the builder.
type Observation struct {
	RaceID             uuid.UUID
	RaceIndex          int
	SessionType        models.SessionType
	DriverNumber       int
	QualifyingPosition float64
	GridPosition       float64
	LapTime            float64
	Sector1            float64
	Sector2            float64
	Sector3            float64
	TyreLife           float64
	PointsBeforeRace   float64
	StintLapTimes      []float64
	StintTyreAges      []float64
	Telemetry          *models.TelemetryTrace
	Target             float64
}

// BuilderInput bundles everything the matrix builder consumes.
type BuilderInput struct {
	Observations []Observation
	History      []RaceOutcome
	DriverStats  map[int]DriverStats
	TeamStats    map[string]TeamStats
	Track        TrackStats
	Uncertainty  UncertaintyInputs
	FormWindow   int
	FormDecay    float64
}

// BuildMatrix assembles one row per observation. Missing driver or team
// lookups degrade to neutral midfield defaults and are recorded in
// Defaults; they never fail the batch.
func BuildMatrix(in BuilderInput) (*Matrix, error) {
	if len(in.Observations) == 0 {
		return nil, fmt.Errorf("build matrix: %w", models.ErrEmptyTrainingSet)
	}
	if in.FormWindow <= 0 {
		in.FormWindow = 5
	}
	if in.FormDecay <= 0 || in.FormDecay > 1 {
		in.FormDecay = 0.8
	}

	m := &Matrix{
		Columns:  append([]string(nil), Superset...),
		Rows:     make([][]float64, 0, len(in.Observations)),
		Target:   make([]float64, 0, len(in.Observations)),
		Groups:   make([]int, 0, len(in.Observations)),
		Drivers:  make([]int, 0, len(in.Observations)),
		RaceIDs:  make([]uuid.UUID, 0, len(in.Observations)),
		Sessions: make([]models.SessionType, 0, len(in.Observations)),
	}

	for rowIdx, obs := range in.Observations {
		driver, ok := in.DriverStats[obs.DriverNumber]
		if !ok {
			driver = DriverStats{AvgPosition: NeutralPosition}
			m.Defaults = append(m.Defaults, DefaultRecord{Row: rowIdx, Column: "driver_avg_position", Reason: "no driver history"})
		}

		team, ok := in.TeamStats[driver.TeamName]
		if !ok {
			team = TeamStats{AvgPosition: NeutralPosition, AvgPositionAtTrack: NeutralPosition}
			m.Defaults = append(m.Defaults, DefaultRecord{Row: rowIdx, Column: "team_avg_position", Reason: "no team history"})
		}

		form := DriverForm(in.History, obs.DriverNumber, obs.RaceIndex, in.FormWindow, in.FormDecay)
		if form == NeutralPosition && !hasPriorRaces(in.History, obs.DriverNumber, obs.RaceIndex) {
			m.Defaults = append(m.Defaults, DefaultRecord{Row: rowIdx, Column: "driver_form", Reason: "no prior races"})
		}

		degradation := TyreDegradation(obs.StintLapTimes, obs.StintTyreAges)
		if len(obs.StintLapTimes) < 3 {
			m.Defaults = append(m.Defaults, DefaultRecord{Row: rowIdx, Column: "tyre_degradation", Reason: "fewer than 3 stint laps"})
		}

		var speed SpeedStats
		var pedals PedalStats
		var corners CornerStats
		if obs.Telemetry != nil {
			speed = SpeedPercentiles(obs.Telemetry.Speed)
			pedals = ThrottleBrakeVariance(obs.Telemetry.Throttle, obs.Telemetry.Brake)
			corners = CorneringDeltas(obs.Telemetry.Speed, obs.Telemetry.Distance, obs.Telemetry.Brake)
		} else {
			m.Defaults = append(m.Defaults, DefaultRecord{Row: rowIdx, Column: "median_speed", Reason: "no telemetry"})
		}

		inter := InteractionFeatures(driver, team, in.Track)

		row := []float64{
			obs.QualifyingPosition,
			obs.GridPosition,
			obs.LapTime,
			obs.Sector1,
			obs.Sector2,
			obs.Sector3,
			obs.TyreLife,
			degradation,
			speed.Median,
			speed.P95,
			speed.Max,
			pedals.ThrottleVariance,
			pedals.BrakeVariance,
			pedals.Smoothness,
			corners.Entry,
			corners.Apex,
			corners.Exit,
			corners.Delta,
			form,
			driver.AvgPosition,
			driver.TotalRaces,
			team.AvgPosition,
			inter.DriverTrackExperience,
			inter.TeamTrackPerformance,
			inter.DriverTeamSynergy,
			UncertaintyScore(in.Uncertainty),
			obs.PointsBeforeRace,
		}

		m.Rows = append(m.Rows, row)
		m.Target = append(m.Target, obs.Target)
		m.Groups = append(m.Groups, obs.RaceIndex)
		m.Drivers = append(m.Drivers, obs.DriverNumber)
		m.RaceIDs = append(m.RaceIDs, obs.RaceID)
		m.Sessions = append(m.Sessions, obs.SessionType)
	}

	return m, nil
}

func hasPriorRaces(history []RaceOutcome, driverNumber, raceIndex int) bool {
	for _, h := range history {
		if h.DriverNumber == driverNumber && h.RaceIndex < raceIndex {
			return true
		}
	}
	return false
}
