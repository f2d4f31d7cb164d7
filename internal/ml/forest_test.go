package ml

import (
	"testing"

	"github.com/yourusername/gridline/internal/config"
)

var testForestConfig = config.RandomForestConfig{
	Estimators:     80,
	MaxDepth:       8,
	MinSamplesLeaf: 2,
	FeatureSubset:  0.8,
	Seed:           42,
}

func TestRandomForestDeterministicWithSeed(t *testing.T) {
	season := syntheticSeason(6, 15, 19)

	a, err := TrainRandomForest(testForestConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	b, err := TrainRandomForest(testForestConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	pa, err := a.Predict(season)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	pb, err := b.Predict(season)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed produced different predictions at row %d: %f vs %f", i, pa[i], pb[i])
		}
	}
}

func TestRandomForestTracksSignal(t *testing.T) {
	season := syntheticSeason(8, 20, 23)
	model, err := TrainRandomForest(testForestConfig, season)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	out, err := model.Predict(season)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}

	qualIdx := season.ColumnIndex("qualifying_position")
	var polePred, backPred float64
	var nPole, nBack int
	for i, row := range season.Rows {
		if row[qualIdx] == 1 {
			polePred += out[i]
			nPole++
		}
		if row[qualIdx] == 20 {
			backPred += out[i]
			nBack++
		}
	}
	if polePred/float64(nPole) >= backPred/float64(nBack) {
		t.Fatalf("pole sitters should predict ahead of backmarkers: %f vs %f",
			polePred/float64(nPole), backPred/float64(nBack))
	}
}
