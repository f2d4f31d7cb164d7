package ml

import (
	"fmt"

	"github.com/cdipaolo/goml/base"
	"github.com/cdipaolo/goml/linear"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// LinearCore is a fitted least-squares hypothesis reduced to its
// coefficients. Keeping only the coefficients makes the artifact
// trivially serializable and the predict path allocation free.
type LinearCore struct {
	Intercept float64
	Weights   []float64
}

func (c *LinearCore) PredictRow(row []float64) float64 {
	pred := c.Intercept
	for j, w := range c.Weights {
		pred += w * row[j]
	}
	return pred
}

// Importance for a linear model is the absolute coefficient magnitude
// on standardized inputs, normalized to sum to 1.
func (c *LinearCore) Importance(nFeatures int) []float64 {
	totals := make([]float64, nFeatures)
	for j := range totals {
		if j < len(c.Weights) {
			totals[j] = abs64(c.Weights[j])
		}
	}
	return normalizeImportance(totals)
}

func (c *LinearCore) NumFeatures() int { return len(c.Weights) }

// TrainLinear fits an ordinary least squares baseline with batch
// gradient descent on standardized features.
func TrainLinear(cfg config.LinearModelConfig, mx *features.Matrix) (*TrainedModel, error) {
	if mx.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no rows to fit linear model", models.ErrEmptyTrainingSet)
	}

	scaler := FitScaler(mx.Rows)
	x := scaler.Transform(mx.Rows)
	y := mx.Target

	ls := linear.NewLeastSquares(base.BatchGA, cfg.LearningRate, cfg.Regularization, cfg.MaxIterations, x, y)
	if err := ls.Learn(); err != nil {
		return nil, fmt.Errorf("least squares fit: %w", err)
	}

	core, err := extractLinearCore(ls, len(mx.Columns))
	if err != nil {
		return nil, err
	}

	return newTrainedModel(AlgorithmLinear, mx.Columns, scaler, columnMeans(mx.Rows), core), nil
}

// extractLinearCore recovers the coefficients by probing the fitted
// hypothesis at the origin and at each unit vector. For a linear
// hypothesis this reconstruction is exact.
func extractLinearCore(ls *linear.LeastSquares, nFeatures int) (*LinearCore, error) {
	zero := make([]float64, nFeatures)
	at := func(row []float64) (float64, error) {
		pred, err := ls.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("probe fitted hypothesis: %w", err)
		}
		return pred[0], nil
	}

	intercept, err := at(zero)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		unit := make([]float64, nFeatures)
		unit[j] = 1
		v, err := at(unit)
		if err != nil {
			return nil, err
		}
		weights[j] = v - intercept
	}

	return &LinearCore{Intercept: intercept, Weights: weights}, nil
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
