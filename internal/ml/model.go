package ml

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// Algorithm identifies which learner family produced a model.
type Algorithm string

const (
	AlgorithmGradientBoosting Algorithm = "gradient_boosting"
	AlgorithmRandomForest     Algorithm = "random_forest"
	AlgorithmLinear           Algorithm = "linear"
	AlgorithmRanker           Algorithm = "lambda_ranker"
	AlgorithmStacked          Algorithm = "stacked_ensemble"
)

// Learner is the fitted core of a model. All learners output
// position-like scores where smaller means a better expected finish,
// regardless of how they were optimized internally.
type Learner interface {
	PredictRow(row []float64) float64
	Importance(nFeatures int) []float64
	NumFeatures() int
}

func init() {
	gob.Register(&GBMCore{})
	gob.Register(&ForestCore{})
	gob.Register(&LinearCore{})
	gob.Register(&RankerCore{})
	gob.Register(&StackedCore{})
}

// TrainedModel couples a fitted learner with everything needed to
// reproduce its inputs at inference time: the frozen feature name
// list, the scaler fitted on training rows, and the training-time
// column means used as the attribution background.
type TrainedModel struct {
	ID           uuid.UUID
	Algorithm    Algorithm
	FeatureNames []string
	Scaler       *Scaler
	Background   []float64
	TrainedAt    time.Time
	Core         Learner
}

// Predict scores every row of the matrix. The matrix must carry every
// feature name frozen at train time; any column of the matrix that is
// neither frozen nor part of the known feature superset is rejected.
func (m *TrainedModel) Predict(mx *features.Matrix) ([]float64, error) {
	if m == nil || m.Core == nil {
		return nil, models.ErrModelUnavailable
	}

	if stacked, ok := m.Core.(*StackedCore); ok {
		return stacked.predict(m, mx)
	}

	design, err := m.designMatrix(mx)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(design))
	for i, row := range design {
		out[i] = m.Core.PredictRow(row)
	}
	return out, nil
}

// designMatrix selects the frozen columns from the matrix and applies
// the fitted scaler.
func (m *TrainedModel) designMatrix(mx *features.Matrix) ([][]float64, error) {
	if err := m.checkSchema(mx); err != nil {
		return nil, err
	}
	sub, _, err := mx.Select(m.FeatureNames)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}
	if len(sub.Columns) != len(m.FeatureNames) {
		return nil, fmt.Errorf("%w: matrix has %d of %d trained columns",
			models.ErrSchemaMismatch, len(sub.Columns), len(m.FeatureNames))
	}
	return m.Scaler.Transform(sub.Rows), nil
}

func (m *TrainedModel) checkSchema(mx *features.Matrix) error {
	have := make(map[string]bool, len(mx.Columns))
	for _, c := range mx.Columns {
		have[c] = true
	}
	for _, name := range m.FeatureNames {
		if !have[name] {
			return fmt.Errorf("%w: missing column %q", models.ErrSchemaMismatch, name)
		}
	}
	known := make(map[string]bool, len(features.Superset))
	for _, c := range features.Superset {
		known[c] = true
	}
	for _, name := range m.FeatureNames {
		known[name] = true
	}
	for _, c := range mx.Columns {
		if !known[c] {
			return fmt.Errorf("%w: unexpected column %q", models.ErrSchemaMismatch, c)
		}
	}
	return nil
}

// FeatureImportance returns global gain-based importance keyed by
// feature name, normalized to sum to 1.
func (m *TrainedModel) FeatureImportance() (map[string]float64, error) {
	if m == nil || m.Core == nil {
		return nil, models.ErrModelUnavailable
	}
	raw := m.Core.Importance(len(m.FeatureNames))
	out := make(map[string]float64, len(m.FeatureNames))
	for j, name := range m.FeatureNames {
		out[name] = raw[j]
	}
	return out, nil
}

// Artifact builds the database record describing this model.
func (m *TrainedModel) Artifact(name, version, blobPath, metaPath string, metrics map[string]float64) *models.ModelArtifact {
	raw, _ := json.Marshal(metrics)
	return &models.ModelArtifact{
		ID:        m.ID,
		Name:      name,
		Version:   version,
		Algorithm: string(m.Algorithm),
		BlobPath:  blobPath,
		MetaPath:  metaPath,
		Metrics:   raw,
		TrainedAt: m.TrainedAt,
	}
}

func newTrainedModel(alg Algorithm, featureNames []string, scaler *Scaler, background []float64, core Learner) *TrainedModel {
	return &TrainedModel{
		ID:           uuid.New(),
		Algorithm:    alg,
		FeatureNames: append([]string(nil), featureNames...),
		Scaler:       scaler,
		Background:   append([]float64(nil), background...),
		TrainedAt:    time.Now().UTC(),
		Core:         core,
	}
}

// columnMeans computes per-column means of raw (unscaled) rows, used
// as the attribution background.
func columnMeans(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, row := range rows {
		for j, v := range row {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rows))
	}
	return out
}
