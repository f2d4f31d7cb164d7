package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

// trainingFixture is a season where each race is a rotation of the
// previous finishing order and everyone finishes where they qualified.
func trainingFixture(raceCount, driverCount int) (*repository.Repositories, *fakeModelRepo) {
	var races []*models.Race
	for round := 1; round <= raceCount; round++ {
		races = append(races, &models.Race{
			ID:        uuid.New(),
			Year:      2025,
			Round:     round,
			EventName: "Round",
			Location:  "circuit",
			EventDate: time.Date(2025, 3, round, 0, 0, 0, 0, time.UTC),
		})
	}

	results := make(map[uuid.UUID][]*models.RaceResult)
	qualifying := make(map[uuid.UUID][]*models.QualifyingResult)
	for round, race := range races {
		for d := 1; d <= driverCount; d++ {
			position := (d-1+round)%driverCount + 1
			results[race.ID] = append(results[race.ID], &models.RaceResult{
				RaceID:       race.ID,
				SessionType:  models.SessionRace,
				DriverNumber: d,
				Position:     position,
				GridPosition: position,
				Points:       decimal.NewFromInt(int64(driverCount - position)),
				Status:       "Finished",
			})
			qualifying[race.ID] = append(qualifying[race.ID], &models.QualifyingResult{
				RaceID:       race.ID,
				DriverNumber: d,
				Position:     position,
			})
		}
	}

	var drivers []*models.Driver
	for d := 1; d <= driverCount; d++ {
		team := "Alpha"
		if d%2 == 0 {
			team = "Beta"
		}
		drivers = append(drivers, &models.Driver{Number: d, TeamName: team, Year: 2025})
	}

	modelRepo := &fakeModelRepo{}
	repos := &repository.Repositories{
		Races:       &fakeRaceRepo{races: races},
		Drivers:     &fakeDriverRepo{drivers: drivers},
		Laps:        &fakeLapRepo{},
		Telemetry:   &fakeTelemetryRepo{},
		Results:     &fakeResultRepo{results: results, qualifying: qualifying},
		Predictions: &fakePredictionRepo{},
		Models:      modelRepo,
	}
	return repos, modelRepo
}

func trainerConfig(artifactDir string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "gridline-test", Environment: "development", LogLevel: "error"},
		Training: config.TrainingConfig{
			Seasons:       []int{2025},
			TestFraction:  0.2,
			CVFolds:       3,
			ArtifactDir:   artifactDir,
			PositionCount: 20,
			MinSpearman:   -1,
		},
		Models: config.ModelsConfig{
			Boosting: config.GradientBoostingConfig{Estimators: 40, LearningRate: 0.1, MaxDepth: 3, MinSamplesLeaf: 2, Seed: 42},
			Forest:   config.RandomForestConfig{Estimators: 30, MaxDepth: 6, MinSamplesLeaf: 2, FeatureSubset: 0.8, Seed: 42},
			Linear:   config.LinearModelConfig{LearningRate: 0.01, Regularization: 0.1, MaxIterations: 200},
			Ranker:   config.RankerConfig{Estimators: 40, LearningRate: 0.1, MaxDepth: 3, EarlyStopping: 10, ValFraction: 0.2, Seed: 42},
			Stacking: config.StackingConfig{Estimators: 30, LearningRate: 0.1, MaxDepth: 2, Seed: 42},
		},
	}
}

func TestTrainerRunTrainsAllLearnersAndActivatesBest(t *testing.T) {
	repos, modelRepo := trainingFixture(10, 6)
	cfg := trainerConfig(t.TempDir())
	plog := testPipelineLogger()
	assembler := NewDatasetAssembler(repos, plog)
	trainer := NewTrainer(cfg, repos, assembler, ml.NewRegistry(time.Minute), plog)

	report, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("training run failed: %v", err)
	}

	if report.Rows != 60 {
		t.Fatalf("expected 60 rows, got %d", report.Rows)
	}
	if report.TrainRows+report.TestRows != report.Rows {
		t.Fatalf("split rows %d+%d do not cover %d", report.TrainRows, report.TestRows, report.Rows)
	}
	if len(report.Summaries) != 5 {
		t.Fatalf("expected summaries for 5 learners, got %d", len(report.Summaries))
	}
	for algo, summary := range report.Summaries {
		if summary.Spearman < -1 || summary.Spearman > 1 {
			t.Fatalf("%s Spearman %f out of range", algo, summary.Spearman)
		}
	}
	if len(modelRepo.artifacts) != 5 {
		t.Fatalf("expected 5 persisted artifacts, got %d", len(modelRepo.artifacts))
	}

	if report.ActiveID == "" {
		t.Fatal("expected an activated model")
	}
	var activeCount int
	for _, a := range modelRepo.artifacts {
		if a.Active {
			activeCount++
			if a.ID.String() != report.ActiveID {
				t.Fatalf("active artifact %s does not match report %s", a.ID, report.ActiveID)
			}
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active artifact, got %d", activeCount)
	}
}

func TestTrainerRunRespectsActivationFloor(t *testing.T) {
	repos, modelRepo := trainingFixture(10, 6)
	cfg := trainerConfig(t.TempDir())
	cfg.Training.MinSpearman = 2 // unreachable, nothing may activate
	plog := testPipelineLogger()
	assembler := NewDatasetAssembler(repos, plog)
	trainer := NewTrainer(cfg, repos, assembler, ml.NewRegistry(time.Minute), plog)

	report, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("training run failed: %v", err)
	}
	if report.ActiveID != "" {
		t.Fatalf("no model should activate below the floor, got %s", report.ActiveID)
	}
	if len(modelRepo.artifacts) != 5 {
		t.Fatalf("artifacts should persist even without activation, got %d", len(modelRepo.artifacts))
	}
	for _, a := range modelRepo.artifacts {
		if a.Active {
			t.Fatalf("artifact %s unexpectedly active", a.ID)
		}
	}
}
