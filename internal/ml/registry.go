package ml

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yourusername/gridline/internal/models"
)

// Registry keeps recently loaded models in memory so repeated
// prediction requests do not re-read and re-decode artifacts.
type Registry struct {
	cache *cache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		cache: cache.New(ttl, ttl*2),
	}
}

// Get returns a cached model, loading and caching it on a miss.
func (r *Registry) Get(artifact *models.ModelArtifact) (*TrainedModel, error) {
	if artifact == nil {
		return nil, models.ErrModelUnavailable
	}
	key := artifact.ID.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*TrainedModel), nil
	}

	m, err := Load(artifact.BlobPath, artifact.MetaPath)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, m, cache.DefaultExpiration)
	return m, nil
}

// Put caches a freshly trained model without a round trip to disk.
func (r *Registry) Put(m *TrainedModel) {
	if m == nil {
		return
	}
	r.cache.Set(m.ID.String(), m, cache.DefaultExpiration)
}

// Evict drops a model, forcing the next Get to reload the artifact.
func (r *Registry) Evict(id string) {
	r.cache.Delete(id)
}
