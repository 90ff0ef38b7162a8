// Package scheduler runs periodic model retraining on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Trainer is the slice of the predictor service the scheduler needs
type Trainer interface {
	Train(ctx context.Context) (string, error)
}

// Scheduler manages the periodic retraining job
type Scheduler struct {
	cron            *cron.Cron
	trainer         Trainer
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	trainingTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(trainer Trainer, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		trainer:         trainer,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		trainingTimeout: time.Hour,
	}
}

// ScheduleRetraining registers the retraining job on a cron expression
func (s *Scheduler) ScheduleRetraining(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.trainingTimeout)
		defer cancel()

		s.logger.Info("Starting scheduled model retraining")

		version, err := s.trainer.Train(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled retraining failed")
			return
		}
		s.logger.WithField("model_version", version).Info("Scheduled retraining completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add retraining job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled model retraining")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
