// Package logger provides rating-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RatingLogger provides dedicated logging for rating updates.
type RatingLogger struct {
	*logrus.Entry
}

// NewRatingLogger creates a new rating logger.
func NewRatingLogger(baseLogger *logrus.Logger) *RatingLogger {
	return &RatingLogger{
		Entry: componentEntry(baseLogger, "rating"),
	}
}

// LogRatingUpdate logs the outcome of folding one race into the rating pools.
func (rl *RatingLogger) LogRatingUpdate(raceID string, drivers int, trackedDrivers, trackedTeams int) {
	rl.WithFields(logrus.Fields{
		"race_id":         raceID,
		"drivers":         drivers,
		"tracked_drivers": trackedDrivers,
		"tracked_teams":   trackedTeams,
	}).Info("Ratings updated")
}

// LogRatingReplay logs a full chronological replay during training.
func (rl *RatingLogger) LogRatingReplay(races int, trackedDrivers, trackedTeams int) {
	rl.WithFields(logrus.Fields{
		"races":           races,
		"tracked_drivers": trackedDrivers,
		"tracked_teams":   trackedTeams,
	}).Info("Rating replay completed")
}
