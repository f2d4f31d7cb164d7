package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestInitRegistryIdempotent(t *testing.T) {
	first := InitRegistry()
	second := InitRegistry()

	assert.Same(t, first, second)
}

func TestRecordPrediction(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordPrediction()
	})
}

func TestRecordTrainingRun(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordTrainingRun(12.5)
		RecordTrainingFailure()
	})
}

func TestRecordModelQuality(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name     string
		spearman float64
	}{
		{"strong model", 0.85},
		{"weak model", 0.1},
		{"inverted model", -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordModelQuality("gradient_boosting", "v1", 2.1, tt.spearman, 0.8)
			})
		})
	}
}

func TestRecordFeatureDefault(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordFeatureDefault("driver_form")
		RecordFeatureDefault("median_speed")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	InitRegistry()
	RecordPrediction()
	RecordIngestedSession(1.5)
	RecordCacheHit()
	RecordPredictionLatency(0.02)
	TrainingSetRows.Set(1200)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{
		"gridline_predictions_generated_total",
		"gridline_ingested_sessions_total",
		"gridline_prediction_cache_hits_total",
		"gridline_training_set_rows",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
