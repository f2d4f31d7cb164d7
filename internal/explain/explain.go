// Package explain exposes why a model predicts what it predicts, both
// globally across the training set and for individual rows.
package explain

import (
	"sort"

	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
)

// FeatureWeight pairs a feature name with its share of the model's
// total split gain.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Attribution decomposes one prediction into additive per-feature
// contributions around a baseline, in prediction units.
type Attribution struct {
	Baseline      float64            `json:"baseline"`
	Contributions map[string]float64 `json:"contributions"`
}

// GlobalImportance ranks features by the model's gain-based
// importance, descending, ties broken by feature name.
func GlobalImportance(m *ml.TrainedModel) ([]FeatureWeight, error) {
	if m == nil || m.Core == nil {
		return nil, models.ErrExplainerUnavailable
	}
	imp, err := m.FeatureImportance()
	if err != nil {
		return nil, models.ErrExplainerUnavailable
	}

	out := make([]FeatureWeight, 0, len(imp))
	for name, w := range imp {
		out = append(out, FeatureWeight{Feature: name, Weight: w})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Weight != out[b].Weight {
			return out[a].Weight > out[b].Weight
		}
		return out[a].Feature < out[b].Feature
	})
	return out, nil
}

// Attribute explains a single scaled observation by walking the
// decision paths of the model's trees and crediting each split's
// change in node mean to the split feature. Models without tree
// structure fall back to coefficient-times-deviation around the
// training background.
func Attribute(m *ml.TrainedModel, row []float64) (*Attribution, error) {
	if m == nil || m.Core == nil {
		return nil, models.ErrExplainerUnavailable
	}
	if len(row) != len(m.FeatureNames) {
		return nil, models.ErrSchemaMismatch
	}

	scaled := m.Scaler.TransformRow(row)

	switch core := m.Core.(type) {
	case *ml.GBMCore:
		return treeAttribution(m, scaled, core.Init, core.Trees, core.LearningRate), nil
	case *ml.ForestCore:
		return forestAttribution(m, scaled, core.Trees), nil
	case *ml.RankerCore:
		// Ranker outputs are negated tree sums; negate the pieces so
		// the attribution matches the reported prediction.
		a := treeAttribution(m, scaled, 0, core.Trees, core.LearningRate)
		a.Baseline = -a.Baseline
		for k := range a.Contributions {
			a.Contributions[k] = -a.Contributions[k]
		}
		return a, nil
	case *ml.StackedCore:
		// For a stacked model the row is the vector of base model
		// predictions, so contributions are credited to base models.
		a := treeAttribution(m, scaled, 0, core.Meta.Trees, core.Meta.LearningRate)
		a.Baseline = -a.Baseline
		for k := range a.Contributions {
			a.Contributions[k] = -a.Contributions[k]
		}
		return a, nil
	case *ml.LinearCore:
		return linearAttribution(m, scaled, core), nil
	default:
		return nil, models.ErrExplainerUnavailable
	}
}

func treeAttribution(m *ml.TrainedModel, scaled []float64, init float64, trees []*ml.Tree, lr float64) *Attribution {
	n := len(m.FeatureNames)
	total := make([]float64, n)
	baseline := init
	for _, t := range trees {
		bias, contrib := t.Contributions(scaled, n)
		baseline += lr * bias
		for j, c := range contrib {
			total[j] += lr * c
		}
	}
	return toAttribution(m.FeatureNames, baseline, total)
}

func forestAttribution(m *ml.TrainedModel, scaled []float64, trees []*ml.Tree) *Attribution {
	n := len(m.FeatureNames)
	total := make([]float64, n)
	var baseline float64
	if len(trees) == 0 {
		return toAttribution(m.FeatureNames, 0, total)
	}
	inv := 1 / float64(len(trees))
	for _, t := range trees {
		bias, contrib := t.Contributions(scaled, n)
		baseline += inv * bias
		for j, c := range contrib {
			total[j] += inv * c
		}
	}
	return toAttribution(m.FeatureNames, baseline, total)
}

// linearAttribution credits each feature with its coefficient times
// the deviation from the training-time background mean.
func linearAttribution(m *ml.TrainedModel, scaled []float64, core *ml.LinearCore) *Attribution {
	n := len(m.FeatureNames)
	total := make([]float64, n)

	background := make([]float64, n)
	if len(m.Background) == n {
		background = m.Scaler.TransformRow(m.Background)
	}

	baseline := core.Intercept
	for j := 0; j < n; j++ {
		baseline += core.Weights[j] * background[j]
		total[j] = core.Weights[j] * (scaled[j] - background[j])
	}
	return toAttribution(m.FeatureNames, baseline, total)
}

func toAttribution(names []string, baseline float64, contrib []float64) *Attribution {
	out := &Attribution{
		Baseline:      baseline,
		Contributions: make(map[string]float64, len(names)),
	}
	for j, name := range names {
		out.Contributions[name] = contrib[j]
	}
	return out
}
