package ml

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/evaluate"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

var testBoostingConfig = config.GradientBoostingConfig{
	Estimators:     100,
	LearningRate:   0.1,
	MaxDepth:       3,
	MinSamplesLeaf: 2,
	Seed:           42,
}

// syntheticSeason builds races of 20 drivers where the finishing
// position follows the qualifying position plus bounded noise.
func syntheticSeason(races, drivers int, seed int64) *features.Matrix {
	rng := rand.New(rand.NewSource(seed))
	m := &features.Matrix{
		Columns: []string{"qualifying_position", "lap_time", "driver_form"},
	}
	for g := 0; g < races; g++ {
		quali := rng.Perm(drivers)
		for d := 0; d < drivers; d++ {
			q := float64(quali[d] + 1)
			finish := q + float64(rng.Intn(5)-2)
			if finish < 1 {
				finish = 1
			}
			if finish > float64(drivers) {
				finish = float64(drivers)
			}
			m.Rows = append(m.Rows, []float64{
				q,
				90.0 + 0.08*q + rng.Float64()*0.05,
				q + rng.Float64()*2,
			})
			m.Target = append(m.Target, finish)
			m.Groups = append(m.Groups, g)
			m.Drivers = append(m.Drivers, d+1)
			m.RaceIDs = append(m.RaceIDs, uuid.Nil)
		}
	}
	return m
}

func subsetByGroups(m *features.Matrix, keep func(g int) bool) *features.Matrix {
	out := &features.Matrix{Columns: m.Columns}
	for i, g := range m.Groups {
		if !keep(g) {
			continue
		}
		out.Rows = append(out.Rows, m.Rows[i])
		out.Target = append(out.Target, m.Target[i])
		out.Groups = append(out.Groups, g)
		out.Drivers = append(out.Drivers, m.Drivers[i])
		out.RaceIDs = append(out.RaceIDs, m.RaceIDs[i])
	}
	return out
}

func TestGradientBoostingHeldOutSpearman(t *testing.T) {
	season := syntheticSeason(10, 20, 7)
	train := subsetByGroups(season, func(g int) bool { return g < 8 })
	test := subsetByGroups(season, func(g int) bool { return g >= 8 })

	model, err := TrainGradientBoosting(testBoostingConfig, train)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	predicted, err := model.Predict(test)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}

	summary, err := evaluate.Evaluate(predicted, test.Target, test.Groups)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if summary.Spearman <= 0.5 {
		t.Fatalf("held-out Spearman %.3f, want > 0.5", summary.Spearman)
	}
}

func TestTrainGradientBoostingEmptyInput(t *testing.T) {
	_, err := TrainGradientBoosting(testBoostingConfig, &features.Matrix{
		Columns: []string{"qualifying_position"},
	})
	if !errors.Is(err, models.ErrEmptyTrainingSet) {
		t.Fatalf("expected ErrEmptyTrainingSet, got %v", err)
	}
}

func TestPredictUntrainedModel(t *testing.T) {
	var m *TrainedModel
	if _, err := m.Predict(&features.Matrix{}); !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for nil model, got %v", err)
	}

	empty := &TrainedModel{}
	if _, err := empty.Predict(&features.Matrix{}); !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for empty model, got %v", err)
	}
}

func TestPredictMissingFrozenColumn(t *testing.T) {
	season := syntheticSeason(4, 10, 3)
	model, err := TrainGradientBoosting(testBoostingConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	narrow := &features.Matrix{
		Columns: []string{"qualifying_position", "lap_time"},
		Rows:    [][]float64{{1, 90.0}},
	}
	if _, err := model.Predict(narrow); !errors.Is(err, models.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestPredictUnknownColumnRejected(t *testing.T) {
	season := syntheticSeason(4, 10, 3)
	model, err := TrainGradientBoosting(testBoostingConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	widened := &features.Matrix{
		Columns: append(append([]string(nil), season.Columns...), "weather_code"),
		Rows:    [][]float64{{1, 90.0, 2, 7}},
	}
	if _, err := model.Predict(widened); !errors.Is(err, models.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for unknown column, got %v", err)
	}
}

func TestPredictToleratesExtraSupersetColumns(t *testing.T) {
	season := syntheticSeason(4, 10, 3)
	model, err := TrainGradientBoosting(testBoostingConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	widened := &features.Matrix{
		Columns: append(append([]string(nil), season.Columns...), "median_speed"),
		Rows:    [][]float64{{1, 90.0, 2, 210.0}},
	}
	out, err := model.Predict(widened)
	if err != nil {
		t.Fatalf("expected extra superset column to be ignored, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(out))
	}
}

func TestFeatureImportanceSumsToOne(t *testing.T) {
	season := syntheticSeason(6, 15, 11)
	model, err := TrainGradientBoosting(testBoostingConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	imp, err := model.FeatureImportance()
	if err != nil {
		t.Fatalf("importance failed: %v", err)
	}
	var sum float64
	for _, v := range imp {
		if v < 0 {
			t.Fatalf("negative importance: %v", imp)
		}
		sum += v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("importance sums to %f, want 1", sum)
	}
	// Qualifying dominates the synthetic signal.
	if imp["qualifying_position"] < imp["lap_time"] {
		t.Fatalf("expected qualifying_position to dominate, got %v", imp)
	}
}
