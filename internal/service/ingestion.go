package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/datasource"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/metrics"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

// telemetry traces are downsampled to at most this many samples per
// driver session before storage
const maxTraceSamples = 2000

// IngestionService pulls a season from the timing provider and stores
// it. Ingestion is idempotent: races conflict on (year, round) and
// are skipped, stints and traces upsert.
type IngestionService struct {
	source     datasource.DataSource
	repos      *repository.Repositories
	normalizer *DataNormalizer
	plog       *logger.PipelineLogger
}

func NewIngestionService(source datasource.DataSource, repos *repository.Repositories, normalizer *DataNormalizer, plog *logger.PipelineLogger) *IngestionService {
	return &IngestionService{
		source:     source,
		repos:      repos,
		normalizer: normalizer,
		plog:       plog,
	}
}

// IngestSeason fetches and stores every race weekend of a season.
func (s *IngestionService) IngestSeason(ctx context.Context, year int) error {
	sessions, err := s.source.FetchSessions(ctx, year)
	if err != nil {
		return fmt.Errorf("fetch %d sessions: %w", year, err)
	}

	meetings := groupByMeeting(sessions)
	round := 0
	for _, meeting := range meetings {
		raceSession := findSession(meeting, s.normalizer, models.SessionRace)
		if raceSession == nil {
			continue
		}
		round++

		race, err := s.normalizer.NormalizeRace(raceSession, round)
		if err != nil {
			s.plog.LogStageError("normalize_race", err)
			continue
		}
		if err := s.repos.Races.Create(ctx, race); err != nil {
			return fmt.Errorf("store race %s: %w", race.EventName, err)
		}

		if err := s.ingestEntryList(ctx, year, raceSession.SessionKey); err != nil {
			s.plog.LogStageError("entry_list", err)
		}

		for _, session := range meeting {
			st, ok := s.normalizer.NormalizeSessionType(session.SessionType)
			if !ok {
				continue
			}
			started := time.Now()
			if err := s.ingestSession(ctx, race, st, session.SessionKey); err != nil {
				s.plog.LogStageError("ingest_session", err)
				continue
			}
			metrics.RecordIngestedSession(time.Since(started).Seconds())
		}
	}

	return nil
}

func (s *IngestionService) ingestEntryList(ctx context.Context, year, sessionKey int) error {
	drivers, err := s.source.FetchDrivers(ctx, sessionKey)
	if err != nil {
		return err
	}
	for _, d := range drivers {
		driver, err := s.normalizer.NormalizeDriver(year, &d)
		if err != nil {
			s.plog.LogStageError("normalize_driver", err)
			continue
		}
		if err := s.repos.Drivers.Upsert(ctx, driver); err != nil {
			return err
		}
	}
	return nil
}

func (s *IngestionService) ingestSession(ctx context.Context, race *models.Race, sessionType models.SessionType, sessionKey int) error {
	if err := s.ingestResults(ctx, race, sessionType, sessionKey); err != nil {
		return err
	}

	stints, err := s.source.FetchStints(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("fetch stints: %w", err)
	}
	laps, err := s.ingestLaps(ctx, race, sessionType, sessionKey, stints)
	if err != nil {
		return err
	}
	if err := s.ingestStints(ctx, race, sessionType, stints, laps); err != nil {
		return err
	}

	// Telemetry comes from qualifying only; it feeds pre-race features.
	if sessionType == models.SessionQualifying {
		s.ingestTelemetry(ctx, race, sessionKey, laps)
	}
	return nil
}

func (s *IngestionService) ingestResults(ctx context.Context, race *models.Race, sessionType models.SessionType, sessionKey int) error {
	results, err := s.source.FetchResults(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}

	for _, src := range results {
		if sessionType == models.SessionQualifying {
			if src.Position == nil {
				continue
			}
			q := &models.QualifyingResult{
				ID:           uuid.New(),
				RaceID:       race.ID,
				DriverNumber: src.DriverNumber,
				Position:     *src.Position,
			}
			if err := s.repos.Results.InsertQualifying(ctx, q); err != nil {
				return fmt.Errorf("store qualifying result: %w", err)
			}
			continue
		}

		result, err := s.normalizer.NormalizeResult(race.ID, sessionType, &src)
		if err != nil {
			s.plog.LogStageError("normalize_result", err)
			continue
		}
		if result == nil {
			continue
		}
		if err := s.repos.Results.Insert(ctx, result); err != nil {
			return fmt.Errorf("store result: %w", err)
		}
	}
	return nil
}

func (s *IngestionService) ingestLaps(ctx context.Context, race *models.Race, sessionType models.SessionType, sessionKey int, stints []datasource.StintData) ([]*models.LapRecord, error) {
	raw, err := s.source.FetchLaps(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("fetch laps: %w", err)
	}

	var laps []*models.LapRecord
	for _, src := range raw {
		lap := s.normalizer.NormalizeLap(race.ID, sessionType, &src)
		if lap == nil {
			continue
		}
		if compound, age, ok := stintForLap(stints, src.DriverNumber, src.LapNumber); ok {
			lap.Compound = compound
			lap.TyreLife = age
		}
		laps = append(laps, lap)
	}

	if err := s.repos.Laps.InsertBatch(ctx, laps); err != nil {
		return nil, fmt.Errorf("store laps: %w", err)
	}
	return laps, nil
}

func (s *IngestionService) ingestStints(ctx context.Context, race *models.Race, sessionType models.SessionType, stints []datasource.StintData, laps []*models.LapRecord) error {
	for _, src := range stints {
		var times, ages []float64
		best := 0.0
		for _, lap := range laps {
			if lap.DriverNumber != src.DriverNumber ||
				lap.LapNumber < src.LapStart || lap.LapNumber > src.LapEnd {
				continue
			}
			times = append(times, lap.LapTime)
			ages = append(ages, float64(lap.TyreLife))
			if best == 0 || lap.LapTime < best {
				best = lap.LapTime
			}
		}
		if len(times) == 0 {
			continue
		}

		var sum float64
		for _, t := range times {
			sum += t
		}
		stint := &models.TyreStint{
			RaceID:           race.ID,
			SessionType:      sessionType,
			DriverNumber:     src.DriverNumber,
			Compound:         src.Compound,
			StintNumber:      src.StintNumber,
			TotalLaps:        len(times),
			AvgLapTime:       sum / float64(len(times)),
			BestLapTime:      best,
			DegradationSlope: features.TyreDegradation(times, ages),
		}
		if err := s.repos.Laps.InsertTyreStint(ctx, stint); err != nil {
			return fmt.Errorf("store tyre stint: %w", err)
		}
	}
	return nil
}

// stintForLap resolves the compound and tyre age for a lap from the
// stint windows the provider reports.
func stintForLap(stints []datasource.StintData, driverNumber, lapNumber int) (string, int, bool) {
	for _, st := range stints {
		if st.DriverNumber != driverNumber || lapNumber < st.LapStart || lapNumber > st.LapEnd {
			continue
		}
		return st.Compound, st.TyreAgeStart + (lapNumber - st.LapStart), true
	}
	return "", 0, false
}

// ingestTelemetry fetches and stores one downsampled trace per driver
// that set a lap in the session. Telemetry failures never abort the
// session; the features degrade to neutral defaults instead.
func (s *IngestionService) ingestTelemetry(ctx context.Context, race *models.Race, sessionKey int, laps []*models.LapRecord) {
	seen := make(map[int]bool)
	for _, lap := range laps {
		if seen[lap.DriverNumber] {
			continue
		}
		seen[lap.DriverNumber] = true

		samples, err := s.source.FetchTelemetry(ctx, sessionKey, lap.DriverNumber)
		if err != nil {
			s.plog.LogStageError("fetch_telemetry", err)
			continue
		}
		trace := buildTrace(samples)
		if trace == nil {
			continue
		}
		if err := s.repos.Telemetry.Upsert(ctx, race.ID, models.SessionQualifying, lap.DriverNumber, trace); err != nil {
			s.plog.LogStageError("store_telemetry", err)
		}
	}
}

// buildTrace converts raw samples into parallel channel arrays,
// integrating speed over time for the distance channel and
// downsampling long sessions.
func buildTrace(samples []datasource.TelemetrySample) *models.TelemetryTrace {
	if len(samples) == 0 {
		return nil
	}

	sort.Slice(samples, func(a, b int) bool {
		return samples[a].Date.Before(samples[b].Date)
	})

	stride := 1
	if len(samples) > maxTraceSamples {
		stride = len(samples) / maxTraceSamples
	}

	trace := &models.TelemetryTrace{}
	distance := 0.0
	prev := samples[0].Date
	for i, sample := range samples {
		dt := sample.Date.Sub(prev).Seconds()
		if dt > 0 && dt < 60 {
			distance += sample.SpeedKPH / 3.6 * dt
		}
		prev = sample.Date

		if i%stride != 0 {
			continue
		}
		trace.Speed = append(trace.Speed, sample.SpeedKPH)
		trace.Throttle = append(trace.Throttle, sample.Throttle)
		trace.Brake = append(trace.Brake, sample.Brake)
		trace.Distance = append(trace.Distance, distance)
	}
	return trace
}

// groupByMeeting buckets sessions by meeting, ordered by the earliest
// session date of each meeting.
func groupByMeeting(sessions []datasource.SessionData) [][]datasource.SessionData {
	byKey := make(map[int][]datasource.SessionData)
	for _, s := range sessions {
		byKey[s.MeetingKey] = append(byKey[s.MeetingKey], s)
	}

	meetings := make([][]datasource.SessionData, 0, len(byKey))
	for _, group := range byKey {
		sort.Slice(group, func(a, b int) bool {
			return group[a].DateStart.Before(group[b].DateStart)
		})
		meetings = append(meetings, group)
	}
	sort.Slice(meetings, func(a, b int) bool {
		return meetings[a][0].DateStart.Before(meetings[b][0].DateStart)
	})
	return meetings
}

func findSession(meeting []datasource.SessionData, n *DataNormalizer, want models.SessionType) *datasource.SessionData {
	for i := range meeting {
		st, ok := n.NormalizeSessionType(meeting[i].SessionType)
		if ok && st == want {
			return &meeting[i]
		}
	}
	return nil
}
