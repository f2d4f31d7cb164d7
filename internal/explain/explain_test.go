package explain

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
)

func trainedGBM(t *testing.T, seed int64) (*ml.TrainedModel, *features.Matrix) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := &features.Matrix{
		Columns: []string{"qualifying_position", "lap_time", "driver_form"},
	}
	for g := 0; g < 8; g++ {
		quali := rng.Perm(18)
		for d := 0; d < 18; d++ {
			q := float64(quali[d] + 1)
			m.Rows = append(m.Rows, []float64{q, 90 + 0.1*q + rng.Float64()*0.05, q + rng.Float64()})
			m.Target = append(m.Target, q+float64(rng.Intn(3)-1))
			m.Groups = append(m.Groups, g)
			m.Drivers = append(m.Drivers, d+1)
			m.RaceIDs = append(m.RaceIDs, uuid.Nil)
		}
	}

	model, err := ml.TrainGradientBoosting(config.GradientBoostingConfig{
		Estimators:     80,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
		Seed:           42,
	}, m)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	return model, m
}

func TestGlobalImportanceSortedDescending(t *testing.T) {
	model, _ := trainedGBM(t, 3)

	weights, err := GlobalImportance(model)
	if err != nil {
		t.Fatalf("GlobalImportance failed: %v", err)
	}
	if len(weights) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(weights))
	}
	for i := 1; i < len(weights); i++ {
		if weights[i].Weight > weights[i-1].Weight {
			t.Fatalf("weights not sorted descending: %+v", weights)
		}
	}
	if weights[0].Feature != "qualifying_position" {
		t.Fatalf("expected qualifying_position to dominate, got %s", weights[0].Feature)
	}
}

func TestGlobalImportanceUntrained(t *testing.T) {
	if _, err := GlobalImportance(nil); !errors.Is(err, models.ErrExplainerUnavailable) {
		t.Fatalf("expected ErrExplainerUnavailable, got %v", err)
	}
	if _, err := GlobalImportance(&ml.TrainedModel{}); !errors.Is(err, models.ErrExplainerUnavailable) {
		t.Fatalf("expected ErrExplainerUnavailable, got %v", err)
	}
}

func TestAttributeSumsToPrediction(t *testing.T) {
	model, m := trainedGBM(t, 9)

	predicted, err := model.Predict(m)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}

	for _, row := range []int{0, 7, 40} {
		attr, err := Attribute(model, m.Rows[row])
		if err != nil {
			t.Fatalf("Attribute failed: %v", err)
		}

		total := attr.Baseline
		for _, c := range attr.Contributions {
			total += c
		}
		if math.Abs(total-predicted[row]) > 1e-6 {
			t.Fatalf("row %d attribution sums to %f, prediction is %f", row, total, predicted[row])
		}
	}
}

func TestAttributeSchemaMismatch(t *testing.T) {
	model, _ := trainedGBM(t, 5)
	if _, err := Attribute(model, []float64{1.0}); !errors.Is(err, models.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
