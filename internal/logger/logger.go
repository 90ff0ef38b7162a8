// Package logger builds the structured logrus loggers for the
// prediction service: a base logger configured from the application
// settings plus component-scoped entries for the model and rating
// pipelines.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service-wide base logger from the configured
// level and environment. An unknown level falls back to info instead
// of failing startup.
func NewLogger(logLevel, environment string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	// Production emits JSON lines for log aggregation; every other
	// environment keeps colored text for terminals.
	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("log_level", logLevel).Warn("Unknown log level, falling back to info")
	}
	log.SetLevel(level)

	return log
}

// componentEntry scopes an entry to one named pipeline component
func componentEntry(base *logrus.Logger, component string) *logrus.Entry {
	return base.WithField("component", component)
}
