package ml

import (
	"fmt"
	"math/rand"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// ForestCore averages fully independent trees grown on bootstrap
// samples with per-split feature subsampling.
type ForestCore struct {
	Trees        []*Tree
	FeatureCount int
}

func (c *ForestCore) PredictRow(row []float64) float64 {
	if len(c.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range c.Trees {
		sum += t.PredictRow(row)
	}
	return sum / float64(len(c.Trees))
}

func (c *ForestCore) Importance(nFeatures int) []float64 {
	totals := make([]float64, nFeatures)
	for _, t := range c.Trees {
		t.accumulateGain(totals)
	}
	return normalizeImportance(totals)
}

func (c *ForestCore) NumFeatures() int { return c.FeatureCount }

// TrainRandomForest fits a bagged ensemble of regression trees on
// finishing positions.
func TrainRandomForest(cfg config.RandomForestConfig, mx *features.Matrix) (*TrainedModel, error) {
	if mx.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no rows to fit forest model", models.ErrEmptyTrainingSet)
	}

	scaler := FitScaler(mx.Rows)
	x := scaler.Transform(mx.Rows)
	y := mx.Target

	core := &ForestCore{FeatureCount: len(mx.Columns)}
	rng := rand.New(rand.NewSource(cfg.Seed))

	params := treeParams{
		maxDepth:       cfg.MaxDepth,
		minSamplesLeaf: cfg.MinSamplesLeaf,
		featureFrac:    cfg.FeatureSubset,
		rng:            rng,
	}

	n := len(y)
	for t := 0; t < cfg.Estimators; t++ {
		boot := make([]int, n)
		for i := range boot {
			boot[i] = rng.Intn(n)
		}
		core.Trees = append(core.Trees, growTree(x, y, boot, params))
	}

	return newTrainedModel(AlgorithmRandomForest, mx.Columns, scaler, columnMeans(mx.Rows), core), nil
}
