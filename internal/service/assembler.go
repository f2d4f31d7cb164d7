package service

import (
	"context"
	"fmt"

	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/metrics"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

// DatasetAssembler turns stored race data into feature matrices. It
// walks races in chronological order and snapshots driver, team and
// track aggregates before folding each race in, so no row ever sees
// statistics from its own race or a later one.
type DatasetAssembler struct {
	repos       *repository.Repositories
	plog        *logger.PipelineLogger
	uncertainty features.UncertaintyInputs
}

func NewDatasetAssembler(repos *repository.Repositories, plog *logger.PipelineLogger) *DatasetAssembler {
	return &DatasetAssembler{repos: repos, plog: plog}
}

// SetUncertaintyInputs installs the season-context signals applied to
// every subsequent row.
func (a *DatasetAssembler) SetUncertaintyInputs(in features.UncertaintyInputs) {
	a.uncertainty = in
}

// runningStats accumulates aggregates while walking the season.
type runningStats struct {
	history      []features.RaceOutcome
	positionSum  map[int]float64
	raceCount    map[int]float64
	trackCount   map[int]map[string]float64
	teamPosSum   map[string]float64
	teamRaces    map[string]float64
	teamTrackSum map[string]map[string]float64
	teamTrackN   map[string]map[string]float64
	moveSum      map[string]float64
	moveN        map[string]float64
	points       map[int]float64
	driverTeam   map[int]string
}

func newRunningStats() *runningStats {
	return &runningStats{
		positionSum:  make(map[int]float64),
		raceCount:    make(map[int]float64),
		trackCount:   make(map[int]map[string]float64),
		teamPosSum:   make(map[string]float64),
		teamRaces:    make(map[string]float64),
		teamTrackSum: make(map[string]map[string]float64),
		teamTrackN:   make(map[string]map[string]float64),
		moveSum:      make(map[string]float64),
		moveN:        make(map[string]float64),
		points:       make(map[int]float64),
		driverTeam:   make(map[int]string),
	}
}

// BuildTrainingMatrix assembles one matrix covering the given seasons,
// one row per classified race entry.
func (a *DatasetAssembler) BuildTrainingMatrix(ctx context.Context, seasons []int) (*features.Matrix, error) {
	races, err := a.seasonRaces(ctx, seasons)
	if err != nil {
		return nil, err
	}
	if len(races) == 0 {
		return nil, fmt.Errorf("no races stored for seasons %v: %w", seasons, models.ErrEmptyTrainingSet)
	}

	stats := newRunningStats()
	a.loadEntryLists(ctx, seasons, stats)

	var combined *features.Matrix
	for _, race := range races {
		results, err := a.repos.Results.Fetch(ctx, raceFilter(race, models.SessionRace))
		if err != nil {
			return nil, fmt.Errorf("fetch results for %s: %w", race.EventName, err)
		}
		if len(results) == 0 {
			continue
		}

		mx, err := a.buildRaceMatrix(ctx, race, results, stats)
		if err != nil {
			return nil, err
		}
		if mx != nil {
			combined = appendMatrix(combined, mx)
		}

		a.foldRaceIn(race, results, stats)
	}

	if combined == nil || combined.NumRows() == 0 {
		return nil, fmt.Errorf("no classified entries in seasons %v: %w", seasons, models.ErrEmptyTrainingSet)
	}

	for _, d := range combined.Defaults {
		a.plog.LogFeatureDefault(d.Column, combined.Drivers[d.Row], d.Reason)
		metrics.RecordFeatureDefault(d.Column)
	}
	metrics.TrainingSetRows.Set(float64(combined.NumRows()))

	return combined, nil
}

// BuildPredictionMatrix assembles rows for one upcoming race from its
// qualifying data and the history of everything before it. Targets
// are zero; the race has not happened.
func (a *DatasetAssembler) BuildPredictionMatrix(ctx context.Context, race *models.Race, seasons []int) (*features.Matrix, error) {
	races, err := a.seasonRaces(ctx, seasons)
	if err != nil {
		return nil, err
	}

	stats := newRunningStats()
	a.loadEntryLists(ctx, seasons, stats)
	for _, prior := range races {
		if prior.ChronologicalIndex() >= race.ChronologicalIndex() {
			continue
		}
		results, err := a.repos.Results.Fetch(ctx, raceFilter(prior, models.SessionRace))
		if err != nil {
			return nil, fmt.Errorf("fetch results for %s: %w", prior.EventName, err)
		}
		a.foldRaceIn(prior, results, stats)
	}

	quali, err := a.repos.Results.FetchQualifying(ctx, race.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch qualifying for %s: %w", race.EventName, err)
	}
	if len(quali) == 0 {
		return nil, fmt.Errorf("no qualifying classification stored for %s", race.EventName)
	}

	entries := make([]*models.RaceResult, 0, len(quali))
	for _, q := range quali {
		entries = append(entries, &models.RaceResult{
			RaceID:       race.ID,
			SessionType:  models.SessionRace,
			DriverNumber: q.DriverNumber,
			GridPosition: q.Position,
		})
	}

	mx, err := a.buildRaceMatrix(ctx, race, entries, stats)
	if err != nil {
		return nil, err
	}
	for _, d := range mx.Defaults {
		a.plog.LogFeatureDefault(d.Column, mx.Drivers[d.Row], d.Reason)
		metrics.RecordFeatureDefault(d.Column)
	}
	return mx, nil
}

func (a *DatasetAssembler) buildRaceMatrix(ctx context.Context, race *models.Race, entries []*models.RaceResult, stats *runningStats) (*features.Matrix, error) {
	quali, err := a.repos.Results.FetchQualifying(ctx, race.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch qualifying for %s: %w", race.EventName, err)
	}
	qualiPos := make(map[int]float64, len(quali))
	for _, q := range quali {
		qualiPos[q.DriverNumber] = float64(q.Position)
	}

	laps, err := a.repos.Laps.Fetch(ctx, raceFilter(race, models.SessionQualifying))
	if err != nil {
		return nil, fmt.Errorf("fetch laps for %s: %w", race.EventName, err)
	}
	bestLap := bestLapByDriver(laps)

	stints, err := a.repos.Laps.FetchTyreStints(ctx, raceFilter(race, models.SessionQualifying))
	if err != nil {
		return nil, fmt.Errorf("fetch stints for %s: %w", race.EventName, err)
	}

	obs := make([]features.Observation, 0, len(entries))
	for _, entry := range entries {
		o := features.Observation{
			RaceID:           race.ID,
			RaceIndex:        race.ChronologicalIndex(),
			SessionType:      entry.SessionType,
			DriverNumber:     entry.DriverNumber,
			GridPosition:     float64(entry.GridPosition),
			PointsBeforeRace: stats.points[entry.DriverNumber],
			Target:           float64(entry.Position),
		}
		if qp, ok := qualiPos[entry.DriverNumber]; ok {
			o.QualifyingPosition = qp
		} else {
			o.QualifyingPosition = o.GridPosition
		}
		if lap, ok := bestLap[entry.DriverNumber]; ok {
			o.LapTime = lap.LapTime
			o.Sector1 = lap.Sector1
			o.Sector2 = lap.Sector2
			o.Sector3 = lap.Sector3
			o.TyreLife = float64(lap.TyreLife)
		}
		o.StintLapTimes, o.StintTyreAges = stintSeries(laps, stints, entry.DriverNumber)

		trace, err := a.repos.Telemetry.Get(ctx, race.ID, models.SessionQualifying, entry.DriverNumber)
		if err != nil {
			a.plog.LogStageError("telemetry_fetch", err)
		} else {
			o.Telemetry = trace
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, nil
	}

	in := features.BuilderInput{
		Observations: obs,
		History:      stats.history,
		DriverStats:  stats.driverStats(race.Location),
		TeamStats:    stats.teamStats(race.Location),
		Track:        stats.trackStats(race.Location),
		Uncertainty:  a.uncertainty,
	}
	return features.BuildMatrix(in)
}

// foldRaceIn updates the running aggregates with a finished race.
func (a *DatasetAssembler) foldRaceIn(race *models.Race, results []*models.RaceResult, stats *runningStats) {
	for _, r := range results {
		if r.Position < 1 {
			continue
		}
		stats.history = append(stats.history, features.RaceOutcome{
			RaceIndex:    race.ChronologicalIndex(),
			DriverNumber: r.DriverNumber,
			Position:     float64(r.Position),
		})

		stats.positionSum[r.DriverNumber] += float64(r.Position)
		stats.raceCount[r.DriverNumber]++
		if stats.trackCount[r.DriverNumber] == nil {
			stats.trackCount[r.DriverNumber] = make(map[string]float64)
		}
		stats.trackCount[r.DriverNumber][race.Location]++

		points, _ := r.Points.Float64()
		stats.points[r.DriverNumber] += points

		if team, ok := stats.driverTeam[r.DriverNumber]; ok {
			stats.teamPosSum[team] += float64(r.Position)
			stats.teamRaces[team]++
			if stats.teamTrackSum[team] == nil {
				stats.teamTrackSum[team] = make(map[string]float64)
				stats.teamTrackN[team] = make(map[string]float64)
			}
			stats.teamTrackSum[team][race.Location] += float64(r.Position)
			stats.teamTrackN[team][race.Location]++
		}

		if r.GridPosition > 0 {
			move := float64(r.GridPosition - r.Position)
			if move < 0 {
				move = -move
			}
			stats.moveSum[race.Location] += move
			stats.moveN[race.Location]++
		}
	}
}

// loadEntryLists seeds the driver-to-team mapping from the stored
// entry lists. Later seasons win when a driver switches teams.
func (a *DatasetAssembler) loadEntryLists(ctx context.Context, seasons []int, stats *runningStats) {
	for _, year := range seasons {
		drivers, err := a.repos.Drivers.GetBySeason(ctx, year)
		if err != nil {
			a.plog.LogStageError("entry_list", err)
			continue
		}
		for _, d := range drivers {
			stats.driverTeam[d.Number] = d.TeamName
		}
	}
}

func (s *runningStats) driverStats(location string) map[int]features.DriverStats {
	out := make(map[int]features.DriverStats, len(s.raceCount))
	for num, count := range s.raceCount {
		out[num] = features.DriverStats{
			AvgPosition:  s.positionSum[num] / count,
			TotalRaces:   count,
			RacesAtTrack: s.trackCount[num][location],
			TeamName:     s.driverTeam[num],
		}
	}
	// Drivers with an entry but no finished race yet still need their
	// team for the team lookups.
	for num, team := range s.driverTeam {
		if _, ok := out[num]; !ok {
			out[num] = features.DriverStats{AvgPosition: features.NeutralPosition, TeamName: team}
		}
	}
	return out
}

func (s *runningStats) teamStats(location string) map[string]features.TeamStats {
	out := make(map[string]features.TeamStats, len(s.teamRaces))
	for team, n := range s.teamRaces {
		ts := features.TeamStats{
			AvgPosition:        s.teamPosSum[team] / n,
			AvgPositionAtTrack: features.NeutralPosition,
		}
		if tn := s.teamTrackN[team][location]; tn > 0 {
			ts.AvgPositionAtTrack = s.teamTrackSum[team][location] / tn
		}
		out[team] = ts
	}
	return out
}

// trackStats derives overtaking difficulty from observed grid-to-
// finish movement: circuits where cars barely move rank close to 1.
func (s *runningStats) trackStats(location string) features.TrackStats {
	if s.moveN[location] == 0 {
		return features.TrackStats{OvertakingDifficulty: 0.5}
	}
	avgMove := s.moveSum[location] / s.moveN[location]
	difficulty := 1.0 - avgMove/10.0
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 1 {
		difficulty = 1
	}
	return features.TrackStats{OvertakingDifficulty: difficulty}
}

func (a *DatasetAssembler) seasonRaces(ctx context.Context, seasons []int) ([]*models.Race, error) {
	races, err := a.repos.Races.GetAllChronological(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch race calendar: %w", err)
	}
	wanted := make(map[int]bool, len(seasons))
	for _, y := range seasons {
		wanted[y] = true
	}
	var out []*models.Race
	for _, r := range races {
		if wanted[r.Year] {
			out = append(out, r)
		}
	}
	return out, nil
}

func raceFilter(race *models.Race, session models.SessionType) repository.ObservationFilter {
	id := race.ID
	st := session
	return repository.ObservationFilter{RaceID: &id, SessionType: &st}
}

func bestLapByDriver(laps []*models.LapRecord) map[int]*models.LapRecord {
	best := make(map[int]*models.LapRecord)
	for _, lap := range laps {
		if lap.LapTime <= 0 {
			continue
		}
		if cur, ok := best[lap.DriverNumber]; !ok || lap.LapTime < cur.LapTime {
			best[lap.DriverNumber] = lap
		}
	}
	return best
}

// stintSeries reconstructs (lap time, tyre age) pairs for the longest
// stint of a driver's session, the input to degradation fitting.
func stintSeries(laps []*models.LapRecord, stints []*models.TyreStint, driverNumber int) (times, ages []float64) {
	var longest *models.TyreStint
	for _, s := range stints {
		if s.DriverNumber != driverNumber {
			continue
		}
		if longest == nil || s.TotalLaps > longest.TotalLaps {
			longest = s
		}
	}
	if longest == nil {
		return nil, nil
	}

	for _, lap := range laps {
		if lap.DriverNumber != driverNumber || lap.Compound != longest.Compound || lap.LapTime <= 0 {
			continue
		}
		times = append(times, lap.LapTime)
		ages = append(ages, float64(lap.TyreLife))
	}
	return times, ages
}

func appendMatrix(dst, src *features.Matrix) *features.Matrix {
	if dst == nil {
		return src
	}
	offset := dst.NumRows()
	dst.Rows = append(dst.Rows, src.Rows...)
	dst.Target = append(dst.Target, src.Target...)
	dst.Groups = append(dst.Groups, src.Groups...)
	dst.Drivers = append(dst.Drivers, src.Drivers...)
	dst.RaceIDs = append(dst.RaceIDs, src.RaceIDs...)
	dst.Sessions = append(dst.Sessions, src.Sessions...)
	for _, d := range src.Defaults {
		d.Row += offset
		dst.Defaults = append(dst.Defaults, d)
	}
	return dst
}
