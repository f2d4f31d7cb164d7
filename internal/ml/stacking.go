package ml

import (
	"fmt"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// StackedCore combines the base models' predictions with a ranking
// meta-learner. The bases travel inside the artifact so a stacked
// model loads and predicts as a single unit.
type StackedCore struct {
	Bases []*TrainedModel
	Meta  *RankerCore
}

func (c *StackedCore) PredictRow(row []float64) float64 {
	// Stacked prediction is matrix-level; a single meta row is only
	// meaningful when the caller already built it from base outputs.
	return -c.Meta.rawScore(row)
}

// Importance reports the meta-learner's gain over the base-prediction
// columns, one per base model.
func (c *StackedCore) Importance(nFeatures int) []float64 {
	return c.Meta.Importance(nFeatures)
}

func (c *StackedCore) NumFeatures() int { return len(c.Bases) }

// predict runs every base model over the raw matrix, then ranks the
// rows by the meta-learner over the base outputs.
func (c *StackedCore) predict(m *TrainedModel, mx *features.Matrix) ([]float64, error) {
	meta, err := c.metaRows(mx)
	if err != nil {
		return nil, err
	}
	scaled := m.Scaler.Transform(meta)
	out := make([]float64, len(scaled))
	for i, row := range scaled {
		out[i] = c.PredictRow(row)
	}
	return out, nil
}

func (c *StackedCore) metaRows(mx *features.Matrix) ([][]float64, error) {
	rows := make([][]float64, mx.NumRows())
	for i := range rows {
		rows[i] = make([]float64, len(c.Bases))
	}
	for b, base := range c.Bases {
		preds, err := base.Predict(mx)
		if err != nil {
			return nil, fmt.Errorf("base model %s: %w", base.Algorithm, err)
		}
		for i, p := range preds {
			rows[i][b] = p
		}
	}
	return rows, nil
}

// TrainStacked fits a ranking meta-learner over the base models'
// out-of-sample behavior on the given matrix. The meta-learner sees
// only base predictions, never the raw features, so it can only
// reweight the bases rather than rediscover the feature space.
func TrainStacked(cfg config.StackingConfig, bases []*TrainedModel, mx *features.Matrix) (*TrainedModel, error) {
	if len(bases) == 0 {
		return nil, models.ErrNoBaseModels
	}
	if mx.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no rows to fit meta-learner", models.ErrEmptyTrainingSet)
	}

	core := &StackedCore{Bases: bases}
	metaRows, err := core.metaRows(mx)
	if err != nil {
		return nil, err
	}

	metaNames := make([]string, len(bases))
	for b, base := range bases {
		metaNames[b] = "pred_" + string(base.Algorithm)
	}

	scaler := FitScaler(metaRows)
	scaled := scaler.Transform(metaRows)

	grouped, err := PrepareRankingData(scaled, mx.Target, mx.Groups)
	if err != nil {
		return nil, err
	}

	rankerCfg := config.RankerConfig{
		Estimators:   cfg.Estimators,
		LearningRate: cfg.LearningRate,
		MaxDepth:     cfg.MaxDepth,
		Seed:         cfg.Seed,
	}
	core.Meta, err = fitLambdaRank(rankerCfg, grouped, len(bases))
	if err != nil {
		return nil, err
	}

	m := newTrainedModel(AlgorithmStacked, metaNames, scaler, columnMeans(metaRows), core)
	return m, nil
}
