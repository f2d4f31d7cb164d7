package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
)

type fakePredictionRepo struct{ inserted []*models.Prediction }

func (r *fakePredictionRepo) Insert(ctx context.Context, prediction *models.Prediction) error {
	r.inserted = append(r.inserted, prediction)
	return nil
}
func (r *fakePredictionRepo) InsertBatch(ctx context.Context, predictions []*models.Prediction) error {
	r.inserted = append(r.inserted, predictions...)
	return nil
}
func (r *fakePredictionRepo) Fetch(ctx context.Context, filter repository.ObservationFilter) ([]*models.Prediction, error) {
	return r.inserted, nil
}

type fakeModelRepo struct{ artifacts []*models.ModelArtifact }

func (r *fakeModelRepo) Create(ctx context.Context, artifact *models.ModelArtifact) error {
	r.artifacts = append(r.artifacts, artifact)
	return nil
}
func (r *fakeModelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	for _, a := range r.artifacts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, models.ErrNotFound
}
func (r *fakeModelRepo) GetActive(ctx context.Context) ([]*models.ModelArtifact, error) {
	var out []*models.ModelArtifact
	for _, a := range r.artifacts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}
func (r *fakeModelRepo) List(ctx context.Context, limit int) ([]*models.ModelArtifact, error) {
	return r.artifacts, nil
}
func (r *fakeModelRepo) GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error) {
	return nil, models.ErrNotFound
}
func (r *fakeModelRepo) SetActive(ctx context.Context, id uuid.UUID) error {
	for _, a := range r.artifacts {
		a.Active = a.ID == id
	}
	return nil
}

func predictorConfig() *config.Config {
	return &config.Config{
		Training: config.TrainingConfig{
			Seasons:       []int{2025},
			PositionCount: 20,
		},
	}
}

func TestPredictRaceWithoutActiveModel(t *testing.T) {
	repos, races := seasonFixture()
	repos.Predictions = &fakePredictionRepo{}
	repos.Models = &fakeModelRepo{}

	plog := testPipelineLogger()
	assembler := NewDatasetAssembler(repos, plog)
	predictor := NewPredictor(predictorConfig(), repos, assembler, ml.NewRegistry(time.Minute), nil, plog)

	_, err := predictor.PredictRace(context.Background(), races[2].ID)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestPredictRacePersistsPredictions(t *testing.T) {
	repos, races := seasonFixture()
	predRepo := &fakePredictionRepo{}
	modelRepo := &fakeModelRepo{}
	repos.Predictions = predRepo
	repos.Models = modelRepo

	plog := testPipelineLogger()
	assembler := NewDatasetAssembler(repos, plog)

	mx, err := assembler.BuildTrainingMatrix(context.Background(), []int{2025})
	if err != nil {
		t.Fatalf("assemble training matrix: %v", err)
	}
	model, err := ml.TrainGradientBoosting(config.GradientBoostingConfig{
		Estimators:     30,
		LearningRate:   0.1,
		MaxDepth:       2,
		MinSamplesLeaf: 1,
		Seed:           7,
	}, mx)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	blobPath, metaPath, err := ml.Save(model, t.TempDir())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	modelRepo.artifacts = append(modelRepo.artifacts, &models.ModelArtifact{
		ID:        model.ID,
		Name:      "position-predictor",
		Version:   model.ID.String(),
		Algorithm: string(model.Algorithm),
		BlobPath:  blobPath,
		MetaPath:  metaPath,
		TrainedAt: model.TrainedAt,
		Active:    true,
	})

	predictor := NewPredictor(predictorConfig(), repos, assembler, ml.NewRegistry(time.Minute), nil, plog)

	preds, err := predictor.PredictRace(context.Background(), races[2].ID)
	if err != nil {
		t.Fatalf("PredictRace failed: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("expected one prediction per qualifier, got %d", len(preds))
	}
	if len(predRepo.inserted) != 3 {
		t.Fatalf("expected 3 persisted predictions, got %d", len(predRepo.inserted))
	}
	for _, p := range preds {
		if p.RaceID != races[2].ID {
			t.Fatalf("prediction bound to wrong race %s", p.RaceID)
		}
		if p.ModelType != string(ml.AlgorithmGradientBoosting) {
			t.Fatalf("unexpected model type %q", p.ModelType)
		}
		if p.Confidence <= 0 || p.Confidence > 1 {
			t.Fatalf("confidence %f outside (0, 1]", p.Confidence)
		}
		if p.Top10Probability == nil || *p.Top10Probability <= 0 || *p.Top10Probability > 1 {
			t.Fatalf("top-10 probability missing or outside (0, 1]")
		}
	}
}
