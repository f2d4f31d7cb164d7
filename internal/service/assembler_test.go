package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

type fakeRaceRepo struct{ races []*models.Race }

func (r *fakeRaceRepo) Create(ctx context.Context, race *models.Race) error { return nil }
func (r *fakeRaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	for _, race := range r.races {
		if race.ID == id {
			return race, nil
		}
	}
	return nil, models.ErrNotFound
}
func (r *fakeRaceRepo) GetBySeason(ctx context.Context, year int) ([]*models.Race, error) {
	var out []*models.Race
	for _, race := range r.races {
		if race.Year == year {
			out = append(out, race)
		}
	}
	return out, nil
}
func (r *fakeRaceRepo) GetAllChronological(ctx context.Context) ([]*models.Race, error) {
	return r.races, nil
}

type fakeDriverRepo struct{ drivers []*models.Driver }

func (r *fakeDriverRepo) Upsert(ctx context.Context, driver *models.Driver) error { return nil }
func (r *fakeDriverRepo) GetBySeason(ctx context.Context, year int) ([]*models.Driver, error) {
	return r.drivers, nil
}
func (r *fakeDriverRepo) GetByNumber(ctx context.Context, number, year int) (*models.Driver, error) {
	return nil, models.ErrNotFound
}

type fakeLapRepo struct {
	laps   []*models.LapRecord
	stints []*models.TyreStint
}

func (r *fakeLapRepo) InsertBatch(ctx context.Context, laps []*models.LapRecord) error { return nil }
func (r *fakeLapRepo) Fetch(ctx context.Context, filter repository.ObservationFilter) ([]*models.LapRecord, error) {
	var out []*models.LapRecord
	for _, lap := range r.laps {
		if filter.RaceID != nil && lap.RaceID != *filter.RaceID {
			continue
		}
		if filter.SessionType != nil && lap.SessionType != *filter.SessionType {
			continue
		}
		out = append(out, lap)
	}
	return out, nil
}
func (r *fakeLapRepo) InsertTyreStint(ctx context.Context, stint *models.TyreStint) error { return nil }
func (r *fakeLapRepo) FetchTyreStints(ctx context.Context, filter repository.ObservationFilter) ([]*models.TyreStint, error) {
	return r.stints, nil
}

type fakeTelemetryRepo struct{}

func (r *fakeTelemetryRepo) Upsert(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int, trace *models.TelemetryTrace) error {
	return nil
}
func (r *fakeTelemetryRepo) Get(ctx context.Context, raceID uuid.UUID, session models.SessionType, driverNumber int) (*models.TelemetryTrace, error) {
	return nil, nil
}

type fakeResultRepo struct {
	results    map[uuid.UUID][]*models.RaceResult
	qualifying map[uuid.UUID][]*models.QualifyingResult
}

func (r *fakeResultRepo) Insert(ctx context.Context, result *models.RaceResult) error { return nil }
func (r *fakeResultRepo) Fetch(ctx context.Context, filter repository.ObservationFilter) ([]*models.RaceResult, error) {
	if filter.RaceID == nil {
		return nil, nil
	}
	return r.results[*filter.RaceID], nil
}
func (r *fakeResultRepo) InsertQualifying(ctx context.Context, result *models.QualifyingResult) error {
	return nil
}
func (r *fakeResultRepo) FetchQualifying(ctx context.Context, raceID uuid.UUID) ([]*models.QualifyingResult, error) {
	return r.qualifying[raceID], nil
}

// seasonFixture is three races of three drivers where every driver
// finishes where they qualified.
func seasonFixture() (*repository.Repositories, []*models.Race) {
	var races []*models.Race
	for round := 1; round <= 3; round++ {
		races = append(races, &models.Race{
			ID:        uuid.New(),
			Year:      2025,
			Round:     round,
			EventName: "Round",
			Location:  "circuit",
			EventDate: time.Date(2025, time.Month(round+2), 1, 0, 0, 0, 0, time.UTC),
		})
	}

	results := make(map[uuid.UUID][]*models.RaceResult)
	qualifying := make(map[uuid.UUID][]*models.QualifyingResult)
	for _, race := range races {
		for d := 1; d <= 3; d++ {
			results[race.ID] = append(results[race.ID], &models.RaceResult{
				RaceID:       race.ID,
				SessionType:  models.SessionRace,
				DriverNumber: d,
				Position:     d,
				GridPosition: d,
				Points:       decimal.NewFromInt(int64(10 - d)),
				Status:       "Finished",
			})
			qualifying[race.ID] = append(qualifying[race.ID], &models.QualifyingResult{
				RaceID:       race.ID,
				DriverNumber: d,
				Position:     d,
			})
		}
	}

	drivers := []*models.Driver{
		{Number: 1, TeamName: "Alpha", Year: 2025},
		{Number: 2, TeamName: "Alpha", Year: 2025},
		{Number: 3, TeamName: "Beta", Year: 2025},
	}

	repos := &repository.Repositories{
		Races:     &fakeRaceRepo{races: races},
		Drivers:   &fakeDriverRepo{drivers: drivers},
		Laps:      &fakeLapRepo{},
		Telemetry: &fakeTelemetryRepo{},
		Results:   &fakeResultRepo{results: results, qualifying: qualifying},
	}
	return repos, races
}

func testPipelineLogger() *logger.PipelineLogger {
	base := logrus.New()
	base.SetLevel(logrus.PanicLevel)
	return logger.NewPipelineLogger(base)
}

func TestBuildTrainingMatrixCausality(t *testing.T) {
	repos, races := seasonFixture()
	assembler := NewDatasetAssembler(repos, testPipelineLogger())

	mx, err := assembler.BuildTrainingMatrix(context.Background(), []int{2025})
	if err != nil {
		t.Fatalf("BuildTrainingMatrix failed: %v", err)
	}
	if mx.NumRows() != 9 {
		t.Fatalf("expected 9 rows, got %d", mx.NumRows())
	}

	formIdx := mx.ColumnIndex("driver_form")
	avgIdx := mx.ColumnIndex("driver_avg_position")
	pointsIdx := mx.ColumnIndex("points_before_race")

	for i := range mx.Rows {
		first := mx.Groups[i] == races[0].ChronologicalIndex()
		if first {
			// No race has been folded in yet: form and averages must be
			// the neutral default, points zero.
			if mx.Rows[i][formIdx] != features.NeutralPosition {
				t.Fatalf("row %d of first race has non-neutral form %f", i, mx.Rows[i][formIdx])
			}
			if mx.Rows[i][pointsIdx] != 0 {
				t.Fatalf("row %d of first race has points %f before any race", i, mx.Rows[i][pointsIdx])
			}
		} else {
			// Every driver has finished in the same position every time,
			// so the prior-race aggregates match that position exactly.
			want := float64(mx.Drivers[i])
			if mx.Rows[i][formIdx] != want {
				t.Fatalf("row %d form %f, want %f from prior races", i, mx.Rows[i][formIdx], want)
			}
			if mx.Rows[i][avgIdx] != want {
				t.Fatalf("row %d avg position %f, want %f", i, mx.Rows[i][avgIdx], want)
			}
			if mx.Rows[i][pointsIdx] == 0 {
				t.Fatalf("row %d should carry accumulated points", i)
			}
		}
	}
}

func TestBuildPredictionMatrixUsesOnlyEarlierRaces(t *testing.T) {
	repos, races := seasonFixture()
	assembler := NewDatasetAssembler(repos, testPipelineLogger())

	// Predicting round 2 must fold in round 1 only.
	mx, err := assembler.BuildPredictionMatrix(context.Background(), races[1], []int{2025})
	if err != nil {
		t.Fatalf("BuildPredictionMatrix failed: %v", err)
	}
	if mx.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", mx.NumRows())
	}

	racesIdx := mx.ColumnIndex("driver_races")
	for i := range mx.Rows {
		if mx.Rows[i][racesIdx] != 1 {
			t.Fatalf("row %d sees %f prior races, want exactly 1", i, mx.Rows[i][racesIdx])
		}
		if mx.Target[i] != 0 {
			t.Fatalf("prediction rows must carry no target, got %f", mx.Target[i])
		}
	}
}

func TestBuildTrainingMatrixNoRaces(t *testing.T) {
	repos := &repository.Repositories{
		Races:     &fakeRaceRepo{},
		Drivers:   &fakeDriverRepo{},
		Laps:      &fakeLapRepo{},
		Telemetry: &fakeTelemetryRepo{},
		Results:   &fakeResultRepo{},
	}
	assembler := NewDatasetAssembler(repos, testPipelineLogger())

	if _, err := assembler.BuildTrainingMatrix(context.Background(), []int{2025}); err == nil {
		t.Fatal("expected error with no stored races")
	}
}
