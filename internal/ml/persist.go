package ml

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/gridline/internal/models"
)

// artifactMeta is the human-readable sidecar written next to every
// model blob. The feature name list is the load-time consistency
// check: a sidecar that disagrees with the blob means the pair was
// mixed up or half-overwritten.
type artifactMeta struct {
	ID           string             `json:"id"`
	Algorithm    string             `json:"algorithm"`
	FeatureNames []string           `json:"feature_names"`
	Importance   map[string]float64 `json:"importance"`
	TrainedAt    time.Time          `json:"trained_at"`
	SavedAt      time.Time          `json:"saved_at"`
}

// Save writes the model as a gob blob plus a JSON metadata sidecar
// under dir, returning both paths. Each file is written to a
// temporary name and renamed into place so readers never observe a
// partial artifact.
func Save(m *TrainedModel, dir string) (blobPath, metaPath string, err error) {
	if m == nil || m.Core == nil {
		return "", "", models.ErrModelUnavailable
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create artifact dir: %w", err)
	}

	stem := fmt.Sprintf("%s-%s", m.Algorithm, m.ID)
	blobPath = filepath.Join(dir, stem+".gob")
	metaPath = filepath.Join(dir, stem+".json")

	if err := writeAtomic(blobPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(m)
	}); err != nil {
		return "", "", fmt.Errorf("write model blob: %w", err)
	}

	importance, err := m.FeatureImportance()
	if err != nil {
		return "", "", err
	}
	meta := artifactMeta{
		ID:           m.ID.String(),
		Algorithm:    string(m.Algorithm),
		FeatureNames: m.FeatureNames,
		Importance:   importance,
		TrainedAt:    m.TrainedAt,
		SavedAt:      time.Now().UTC(),
	}
	if err := writeAtomic(metaPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", "", fmt.Errorf("write model metadata: %w", err)
	}

	return blobPath, metaPath, nil
}

// Load reads a model blob and its sidecar and verifies they describe
// the same model. Any disagreement between the two files, or between
// the feature list and the fitted learner's input width, returns
// ErrArtifactMismatch.
func Load(blobPath, metaPath string) (*TrainedModel, error) {
	blob, err := os.Open(blobPath)
	if err != nil {
		return nil, fmt.Errorf("open model blob: %w", err)
	}
	defer blob.Close()

	var m TrainedModel
	if err := gob.NewDecoder(blob).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model blob: %w", err)
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	var meta artifactMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode model metadata: %w", err)
	}

	if meta.ID != m.ID.String() || meta.Algorithm != string(m.Algorithm) {
		return nil, fmt.Errorf("%w: sidecar describes model %s/%s, blob holds %s/%s",
			models.ErrArtifactMismatch, meta.Algorithm, meta.ID, m.Algorithm, m.ID)
	}
	if len(meta.FeatureNames) != len(m.FeatureNames) {
		return nil, fmt.Errorf("%w: sidecar lists %d features, blob expects %d",
			models.ErrArtifactMismatch, len(meta.FeatureNames), len(m.FeatureNames))
	}
	for i, name := range meta.FeatureNames {
		if name != m.FeatureNames[i] {
			return nil, fmt.Errorf("%w: feature %d is %q in sidecar, %q in blob",
				models.ErrArtifactMismatch, i, name, m.FeatureNames[i])
		}
	}
	if m.Core == nil {
		return nil, fmt.Errorf("%w: blob holds no fitted learner", models.ErrArtifactMismatch)
	}
	if width := m.Core.NumFeatures(); width != len(m.FeatureNames) {
		return nil, fmt.Errorf("%w: learner expects %d inputs, feature list has %d",
			models.ErrArtifactMismatch, width, len(m.FeatureNames))
	}

	return &m, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
