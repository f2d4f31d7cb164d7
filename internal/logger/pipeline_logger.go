// Package logger provides pipeline-stage scoped logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for training and inference runs.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a logger scoped to the prediction pipeline.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogModelTraining logs completion of one model fit.
func (pl *PipelineLogger) LogModelTraining(algorithm string, rows, featureCount int, durationSeconds float64, metrics map[string]float64) {
	pl.WithFields(logrus.Fields{
		"algorithm":        algorithm,
		"rows":             rows,
		"feature_count":    featureCount,
		"duration_seconds": durationSeconds,
		"metrics":          metrics,
	}).Info("Model training completed")
}

// LogPredictionBatch logs one batch of persisted predictions.
func (pl *PipelineLogger) LogPredictionBatch(raceID string, sessionType string, modelType string, drivers int, cacheHit bool) {
	pl.WithFields(logrus.Fields{
		"race_id":      raceID,
		"session_type": sessionType,
		"model_type":   modelType,
		"drivers":      drivers,
		"cache_hit":    cacheHit,
	}).Info("Prediction batch completed")
}

// LogFeatureDefault logs a soft data-sparsity fallback. These are warnings,
// never hard failures: one driver's missing history must not abort the batch.
func (pl *PipelineLogger) LogFeatureDefault(feature string, driverNumber int, reason string) {
	pl.WithFields(logrus.Fields{
		"feature":       feature,
		"driver_number": driverNumber,
		"reason":        reason,
	}).Warn("Feature defaulted due to sparse data")
}

// LogStageError logs a hard pipeline failure before it aborts the stage.
func (pl *PipelineLogger) LogStageError(stage string, err error) {
	pl.WithFields(logrus.Fields{
		"stage": stage,
	}).WithError(err).Error("Pipeline stage failed")
}
