package ml

import (
	"fmt"
	"math/rand"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// GBMCore is a gradient boosting regressor: a constant initial
// prediction plus a shrunk sum of regression trees fitted to the
// residuals of everything before them.
type GBMCore struct {
	Init         float64
	LearningRate float64
	Trees        []*Tree
	FeatureCount int
}

func (c *GBMCore) PredictRow(row []float64) float64 {
	pred := c.Init
	for _, t := range c.Trees {
		pred += c.LearningRate * t.PredictRow(row)
	}
	return pred
}

func (c *GBMCore) Importance(nFeatures int) []float64 {
	totals := make([]float64, nFeatures)
	for _, t := range c.Trees {
		t.accumulateGain(totals)
	}
	return normalizeImportance(totals)
}

func (c *GBMCore) NumFeatures() int { return c.FeatureCount }

// TrainGradientBoosting fits a boosted ensemble of regression trees
// on finishing positions. The matrix rows are scaled with a scaler
// fitted here, which travels with the model.
func TrainGradientBoosting(cfg config.GradientBoostingConfig, mx *features.Matrix) (*TrainedModel, error) {
	if mx.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no rows to fit boosting model", models.ErrEmptyTrainingSet)
	}

	scaler := FitScaler(mx.Rows)
	x := scaler.Transform(mx.Rows)
	y := mx.Target

	core := &GBMCore{
		Init:         mean(y),
		LearningRate: cfg.LearningRate,
		FeatureCount: len(mx.Columns),
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	idx := allIndices(len(y))
	residuals := make([]float64, len(y))
	current := make([]float64, len(y))
	for i := range current {
		current[i] = core.Init
	}

	params := treeParams{
		maxDepth:       cfg.MaxDepth,
		minSamplesLeaf: cfg.MinSamplesLeaf,
		featureFrac:    1,
		rng:            rng,
	}

	for n := 0; n < cfg.Estimators; n++ {
		for i := range residuals {
			residuals[i] = y[i] - current[i]
		}
		tree := growTree(x, residuals, idx, params)
		core.Trees = append(core.Trees, tree)
		for i, row := range x {
			current[i] += cfg.LearningRate * tree.PredictRow(row)
		}
	}

	return newTrainedModel(AlgorithmGradientBoosting, mx.Columns, scaler, columnMeans(mx.Rows), core), nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
