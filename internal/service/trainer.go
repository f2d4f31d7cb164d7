package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/evaluate"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/metrics"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

// Trainer runs the full training pipeline: assemble the matrix, split
// it once, fit every learner on the training side, evaluate on the
// held-out side, and persist the artifacts. The same split feeds every
// stage; no learner ever sees held-out races.
type Trainer struct {
	cfg       *config.Config
	repos     *repository.Repositories
	assembler *DatasetAssembler
	registry  *ml.Registry
	plog      *logger.PipelineLogger
}

// TrainingReport summarizes one training run.
type TrainingReport struct {
	Version    string
	Rows       int
	TrainRows  int
	TestRows   int
	Summaries  map[ml.Algorithm]*evaluate.Summary
	CVSpearman float64
	ActiveID   string
}

func NewTrainer(cfg *config.Config, repos *repository.Repositories, assembler *DatasetAssembler, registry *ml.Registry, plog *logger.PipelineLogger) *Trainer {
	return &Trainer{
		cfg:       cfg,
		repos:     repos,
		assembler: assembler,
		registry:  registry,
		plog:      plog,
	}
}

// Run executes a full training run over the configured seasons.
func (t *Trainer) Run(ctx context.Context) (*TrainingReport, error) {
	started := time.Now()

	report, err := t.run(ctx)
	if err != nil {
		metrics.RecordTrainingFailure()
		t.plog.LogStageError("training", err)
		return nil, err
	}

	metrics.RecordTrainingRun(time.Since(started).Seconds())
	return report, nil
}

func (t *Trainer) run(ctx context.Context) (*TrainingReport, error) {
	mx, err := t.assembler.BuildTrainingMatrix(ctx, t.cfg.Training.Seasons)
	if err != nil {
		return nil, fmt.Errorf("assemble training matrix: %w", err)
	}

	trainIdx, testIdx, err := evaluate.HoldoutSplit(mx.Groups, t.cfg.Training.TestFraction)
	if err != nil {
		return nil, fmt.Errorf("holdout split: %w", err)
	}
	trainMx := subsetMatrix(mx, trainIdx)
	testMx := subsetMatrix(mx, testIdx)

	version := time.Now().UTC().Format("v20060102-150405")
	report := &TrainingReport{
		Version:   version,
		Rows:      mx.NumRows(),
		TrainRows: trainMx.NumRows(),
		TestRows:  testMx.NumRows(),
		Summaries: make(map[ml.Algorithm]*evaluate.Summary),
	}

	bases, err := t.trainBases(trainMx)
	if err != nil {
		return nil, err
	}

	stacked, err := ml.TrainStacked(t.cfg.Models.Stacking, bases, trainMx)
	if err != nil {
		return nil, fmt.Errorf("train stacked ensemble: %w", err)
	}

	all := append(append([]*ml.TrainedModel(nil), bases...), stacked)

	var best *ml.TrainedModel
	var bestSpearman float64
	var bestArtifactID string
	for _, m := range all {
		summary, err := t.evaluateModel(m, testMx)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", m.Algorithm, err)
		}
		report.Summaries[m.Algorithm] = summary
		metrics.RecordModelQuality(string(m.Algorithm), version, summary.MAE, summary.Spearman, summary.Top10HitRate)

		artifactID, err := t.persistModel(ctx, m, version, summary)
		if err != nil {
			return nil, err
		}

		if best == nil || summary.Spearman > bestSpearman {
			best = m
			bestSpearman = summary.Spearman
			bestArtifactID = artifactID
		}
	}

	if report.CVSpearman, err = t.crossValidate(trainMx); err != nil {
		// CV is diagnostic; a failure downgrades to a logged warning.
		t.plog.LogStageError("cross_validation", err)
		err = nil
	}

	if bestSpearman < t.cfg.Training.MinSpearman {
		t.plog.LogStageError("activation", fmt.Errorf(
			"best model %s scored Spearman %.3f, below activation floor %.3f",
			best.Algorithm, bestSpearman, t.cfg.Training.MinSpearman))
		return report, nil
	}

	if err := t.activate(ctx, bestArtifactID); err != nil {
		return nil, err
	}
	report.ActiveID = bestArtifactID
	t.registry.Put(best)

	return report, nil
}

func (t *Trainer) trainBases(trainMx *features.Matrix) ([]*ml.TrainedModel, error) {
	type fit struct {
		name  string
		train func() (*ml.TrainedModel, error)
	}
	fits := []fit{
		{"gradient boosting", func() (*ml.TrainedModel, error) {
			return ml.TrainGradientBoosting(t.cfg.Models.Boosting, trainMx)
		}},
		{"random forest", func() (*ml.TrainedModel, error) {
			return ml.TrainRandomForest(t.cfg.Models.Forest, trainMx)
		}},
		{"linear", func() (*ml.TrainedModel, error) {
			return ml.TrainLinear(t.cfg.Models.Linear, trainMx)
		}},
		{"ranker", func() (*ml.TrainedModel, error) {
			return ml.TrainRanker(t.cfg.Models.Ranker, trainMx)
		}},
	}

	var bases []*ml.TrainedModel
	for _, f := range fits {
		started := time.Now()
		m, err := f.train()
		if err != nil {
			return nil, fmt.Errorf("train %s model: %w", f.name, err)
		}
		t.plog.LogModelTraining(string(m.Algorithm), trainMx.NumRows(), len(trainMx.Columns),
			time.Since(started).Seconds(), nil)
		bases = append(bases, m)
	}
	return bases, nil
}

func (t *Trainer) evaluateModel(m *ml.TrainedModel, testMx *features.Matrix) (*evaluate.Summary, error) {
	preds, err := m.Predict(testMx)
	if err != nil {
		return nil, err
	}
	return evaluate.Evaluate(preds, testMx.Target, testMx.Groups)
}

// crossValidate reports the mean expanding-window Spearman of the
// boosting model, a stability check beyond the single holdout.
func (t *Trainer) crossValidate(trainMx *features.Matrix) (float64, error) {
	folds, err := evaluate.ExpandingWindowFolds(trainMx.Groups, t.cfg.Training.CVFolds)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, fold := range folds {
		foldTrain := subsetMatrix(trainMx, fold.TrainIdx)
		foldVal := subsetMatrix(trainMx, fold.ValIdx)

		m, err := ml.TrainGradientBoosting(t.cfg.Models.Boosting, foldTrain)
		if err != nil {
			return 0, err
		}
		summary, err := t.evaluateModel(m, foldVal)
		if err != nil {
			return 0, err
		}
		sum += summary.Spearman
	}
	return sum / float64(len(folds)), nil
}

func (t *Trainer) persistModel(ctx context.Context, m *ml.TrainedModel, version string, summary *evaluate.Summary) (string, error) {
	blobPath, metaPath, err := ml.Save(m, t.cfg.Training.ArtifactDir)
	if err != nil {
		return "", fmt.Errorf("save %s artifact: %w", m.Algorithm, err)
	}

	artifact := m.Artifact(t.cfg.App.Name, version, blobPath, metaPath, map[string]float64{
		"mae":            summary.MAE,
		"spearman":       summary.Spearman,
		"top10_hit_rate": summary.Top10HitRate,
	})
	if err := t.repos.Models.Create(ctx, artifact); err != nil {
		return "", fmt.Errorf("record %s artifact: %w", m.Algorithm, err)
	}
	return artifact.ID.String(), nil
}

func (t *Trainer) activate(ctx context.Context, artifactID string) error {
	id, err := uuid.Parse(artifactID)
	if err != nil {
		return fmt.Errorf("parse artifact id: %w", err)
	}
	if err := t.repos.Models.SetActive(ctx, id); err != nil {
		return fmt.Errorf("activate model %s: %w", artifactID, err)
	}
	return nil
}

// subsetMatrix builds a row-subset view with copied slices.
func subsetMatrix(mx *features.Matrix, idx []int) *features.Matrix {
	out := &features.Matrix{
		Columns:  mx.Columns,
		Rows:     make([][]float64, len(idx)),
		Target:   make([]float64, len(idx)),
		Groups:   make([]int, len(idx)),
		Drivers:  make([]int, len(idx)),
		RaceIDs:  make([]uuid.UUID, len(idx)),
		Sessions: make([]models.SessionType, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = mx.Rows[j]
		out.Target[i] = mx.Target[j]
		out.Groups[i] = mx.Groups[j]
		out.Drivers[i] = mx.Drivers[j]
		out.RaceIDs[i] = mx.RaceIDs[j]
		out.Sessions[i] = mx.Sessions[j]
	}
	return out
}
