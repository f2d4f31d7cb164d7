package models

import "errors"

// Hard errors abort the pipeline stage that raised them. Soft data-sparsity
// situations are not errors; they degrade to documented neutral defaults and
// are reported through features.DefaultRecord.
var (
	// ErrNotFound indicates a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a unique constraint violation
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrEmptyTrainingSet indicates training was requested with zero observations
	ErrEmptyTrainingSet = errors.New("training set is empty")

	// ErrNoFeatureColumns indicates none of the recognized feature columns are present
	ErrNoFeatureColumns = errors.New("no usable feature columns in data")

	// ErrSchemaMismatch indicates an inference request whose feature set does
	// not match the schema frozen at training time
	ErrSchemaMismatch = errors.New("feature schema does not match trained model")

	// ErrNoBaseModels indicates stacking was requested with no trained base models
	ErrNoBaseModels = errors.New("stacking requires at least one trained base model")

	// ErrModelUnavailable indicates a prediction was requested from a model
	// type that was never trained or loaded
	ErrModelUnavailable = errors.New("model not trained or loaded")

	// ErrArtifactMismatch indicates a persisted blob and its metadata sidecar
	// are mutually inconsistent
	ErrArtifactMismatch = errors.New("model blob and metadata sidecar are inconsistent")

	// ErrExplainerUnavailable indicates attribution was requested before any
	// model was trained; callers must not treat this as zero importance
	ErrExplainerUnavailable = errors.New("explainer unavailable: no trained model")
)
