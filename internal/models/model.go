package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModelArtifact is the persistence record for one trained model: an opaque
// binary blob on disk plus a JSON metadata sidecar. The record never mutates
// after creation; retraining produces a new artifact row.
type ModelArtifact struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Name      string          `db:"name" json:"name" validate:"required"`
	Version   string          `db:"version" json:"version" validate:"required"`
	Algorithm string          `db:"algorithm" json:"algorithm" validate:"required"`
	BlobPath  string          `db:"blob_path" json:"blob_path" validate:"required"`
	MetaPath  string          `db:"meta_path" json:"meta_path" validate:"required"`
	Metrics   json.RawMessage `db:"metrics" json:"metrics"`
	TrainedAt time.Time       `db:"trained_at" json:"trained_at" validate:"required"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActive checks if the artifact is the currently served version
func (m *ModelArtifact) IsActive() bool {
	return m.Active
}

// GetMetric retrieves a metric value from the Metrics JSON
func (m *ModelArtifact) GetMetric(name string) (float64, bool, error) {
	if m.Metrics == nil {
		return 0, false, nil
	}

	var metrics map[string]float64
	if err := json.Unmarshal(m.Metrics, &metrics); err != nil {
		return 0, false, err
	}

	v, ok := metrics[name]
	return v, ok, nil
}
