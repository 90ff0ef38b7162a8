// Package logger provides model-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ModelLogger provides dedicated logging for training and prediction operations.
type ModelLogger struct {
	*logrus.Entry
}

// NewModelLogger creates a new model logger.
func NewModelLogger(baseLogger *logrus.Logger) *ModelLogger {
	return &ModelLogger{
		Entry: componentEntry(baseLogger, "model"),
	}
}

// LogModelTraining logs a completed training run.
func (ml *ModelLogger) LogModelTraining(modelVersion string, trainingRaces int, duration time.Duration, hyperparameters map[string]interface{}) {
	ml.WithFields(logrus.Fields{
		"model_version":   modelVersion,
		"training_races":  trainingRaces,
		"duration_ms":     duration.Milliseconds(),
		"hyperparameters": hyperparameters,
	}).Info("Model training completed")
}

// LogPredictionRequest logs a served race prediction.
func (ml *ModelLogger) LogPredictionRequest(raceID string, drivers, trials int, cacheHit bool, latencyMs float64) {
	ml.WithFields(logrus.Fields{
		"race_id":    raceID,
		"drivers":    drivers,
		"trials":     trials,
		"cache_hit":  cacheHit,
		"latency_ms": latencyMs,
	}).Info("Prediction request completed")
}

// LogPredictionError logs a failed prediction.
func (ml *ModelLogger) LogPredictionError(raceID string, errorReason string) {
	ml.WithFields(logrus.Fields{
		"race_id":      raceID,
		"error_reason": errorReason,
	}).Error("Prediction failed")
}

// LogArtifactPromotion logs a new artifact becoming the serving model.
func (ml *ModelLogger) LogArtifactPromotion(modelVersion string, previousVersion string) {
	ml.WithFields(logrus.Fields{
		"model_version":    modelVersion,
		"previous_version": previousVersion,
	}).Info("Model artifact promoted")
}
