package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/cache"
	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/explain"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/metrics"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/probability"
	"github.com/yourusername/gridline/internal/repository"
)

// softmax temperature for converting predicted positions into
// distributions over grid slots
const distributionTemperature = 3.0

// Predictor serves finishing-position predictions for a race using
// the active model. Results are cached per (race, model version) and
// persisted insert-only.
type Predictor struct {
	cfg       *config.Config
	repos     *repository.Repositories
	assembler *DatasetAssembler
	registry  *ml.Registry
	predCache *cache.PredictionCache
	plog      *logger.PipelineLogger
}

func NewPredictor(cfg *config.Config, repos *repository.Repositories, assembler *DatasetAssembler, registry *ml.Registry, predCache *cache.PredictionCache, plog *logger.PipelineLogger) *Predictor {
	return &Predictor{
		cfg:       cfg,
		repos:     repos,
		assembler: assembler,
		registry:  registry,
		predCache: predCache,
		plog:      plog,
	}
}

// PredictRace generates, persists and returns predictions for every
// qualifier of the given race.
func (p *Predictor) PredictRace(ctx context.Context, raceID uuid.UUID) ([]*models.Prediction, error) {
	started := time.Now()

	race, err := p.repos.Races.GetByID(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", raceID, err)
	}

	artifact, err := p.activeArtifact(ctx)
	if err != nil {
		return nil, err
	}

	if p.predCache != nil {
		cached, err := p.predCache.Get(ctx, raceID.String(), artifact.Version)
		if err != nil {
			p.plog.LogStageError("prediction_cache", err)
		} else if cached != nil {
			metrics.RecordCacheHit()
			p.plog.LogPredictionBatch(raceID.String(), string(models.SessionRace),
				artifact.Algorithm, len(cached), true)
			return cached, nil
		}
	}

	model, err := p.registry.Get(artifact)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", artifact.Version, err)
	}

	mx, err := p.assembler.BuildPredictionMatrix(ctx, race, p.cfg.Training.Seasons)
	if err != nil {
		return nil, fmt.Errorf("assemble prediction matrix: %w", err)
	}

	preds, err := p.predictRows(model, mx)
	if err != nil {
		return nil, err
	}

	if err := p.repos.Predictions.InsertBatch(ctx, preds); err != nil {
		return nil, fmt.Errorf("persist predictions: %w", err)
	}
	for range preds {
		metrics.RecordPrediction()
	}

	if p.predCache != nil {
		if err := p.predCache.Set(ctx, raceID.String(), artifact.Version, preds); err != nil {
			p.plog.LogStageError("prediction_cache", err)
		}
	}

	metrics.RecordPredictionLatency(time.Since(started).Seconds())
	p.plog.LogPredictionBatch(raceID.String(), string(models.SessionRace),
		artifact.Algorithm, len(preds), false)
	return preds, nil
}

func (p *Predictor) predictRows(model *ml.TrainedModel, mx *features.Matrix) ([]*models.Prediction, error) {
	scores, err := model.Predict(mx)
	if err != nil {
		return nil, err
	}

	attrRows, err := p.attributionRows(model, mx)
	if err != nil {
		// Attribution failures degrade the payload, not the prediction.
		p.plog.LogStageError("attribution", err)
		attrRows = nil
	}

	fieldSize := p.cfg.Training.PositionCount
	if mx.NumRows() > fieldSize {
		fieldSize = mx.NumRows()
	}

	now := time.Now()
	out := make([]*models.Prediction, 0, len(scores))
	for i, score := range scores {
		dist, err := probability.FromPrediction(score, fieldSize, distributionTemperature)
		if err != nil {
			return nil, fmt.Errorf("position distribution: %w", err)
		}

		top10 := dist.Top10()
		pred := &models.Prediction{
			ID:                uuid.New(),
			RaceID:            mx.RaceIDs[i],
			SessionType:       mx.Sessions[i],
			DriverNumber:      mx.Drivers[i],
			PredictedPosition: score,
			Confidence:        peakConfidence(dist, score),
			Top10Probability:  &top10,
			ModelType:         string(model.Algorithm),
			PredictedAt:       now,
		}

		if snap, err := json.Marshal(mx.RowSnapshot(i)); err == nil {
			pred.Features = snap
		}
		if attrRows != nil {
			if raw, err := json.Marshal(attrRows[i]); err == nil {
				pred.Attributions = raw
			}
		}
		out = append(out, pred)
	}
	return out, nil
}

// attributionRows computes per-driver additive contributions. Stacked
// models are attributed over their base-model outputs.
func (p *Predictor) attributionRows(model *ml.TrainedModel, mx *features.Matrix) ([]*explain.Attribution, error) {
	var rows [][]float64
	if stacked, ok := model.Core.(*ml.StackedCore); ok {
		var err error
		if rows, err = baseMetaRows(stacked, mx); err != nil {
			return nil, err
		}
	} else {
		sub, _, err := mx.Select(model.FeatureNames)
		if err != nil {
			return nil, err
		}
		rows = sub.Rows
	}

	out := make([]*explain.Attribution, len(rows))
	for i, row := range rows {
		a, err := explain.Attribute(model, row)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func baseMetaRows(stacked *ml.StackedCore, mx *features.Matrix) ([][]float64, error) {
	rows := make([][]float64, mx.NumRows())
	for i := range rows {
		rows[i] = make([]float64, len(stacked.Bases))
	}
	for b, base := range stacked.Bases {
		preds, err := base.Predict(mx)
		if err != nil {
			return nil, err
		}
		for i, v := range preds {
			rows[i][b] = v
		}
	}
	return rows, nil
}

// peakConfidence is the distribution mass within one position of the
// rounded prediction.
func peakConfidence(dist probability.Distribution, predicted float64) float64 {
	center := int(predicted + 0.5)
	if center < 1 {
		center = 1
	}
	if center > len(dist) {
		center = len(dist)
	}

	var mass float64
	for pos := center - 1; pos <= center+1; pos++ {
		if pos >= 1 && pos <= len(dist) {
			mass += dist[pos-1]
		}
	}
	if mass > 1 {
		mass = 1
	}
	return mass
}

// ExplainActive returns the ranked global feature importance of the
// active model.
func (p *Predictor) ExplainActive(ctx context.Context) ([]explain.FeatureWeight, error) {
	artifact, err := p.activeArtifact(ctx)
	if err != nil {
		return nil, err
	}
	model, err := p.registry.Get(artifact)
	if err != nil {
		return nil, err
	}
	return explain.GlobalImportance(model)
}

// ActiveModelAvailable reports whether the active model can be loaded
// and served. The health server uses it as a readiness check.
func (p *Predictor) ActiveModelAvailable(ctx context.Context) error {
	artifact, err := p.activeArtifact(ctx)
	if err != nil {
		return err
	}
	_, err = p.registry.Get(artifact)
	return err
}

func (p *Predictor) activeArtifact(ctx context.Context) (*models.ModelArtifact, error) {
	active, err := p.repos.Models.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("look up active model: %w", err)
	}
	if len(active) == 0 {
		return nil, models.ErrModelUnavailable
	}
	return active[0], nil
}
