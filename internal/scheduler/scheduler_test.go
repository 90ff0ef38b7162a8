package scheduler

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeTrainer struct {
	calls int
}

func (f *fakeTrainer) Train(ctx context.Context) (string, error) {
	f.calls++
	return "v-test", nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestStartWithoutJobsFails(t *testing.T) {
	s := NewScheduler(&fakeTrainer{}, quietLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected error starting scheduler with no jobs")
	}
}

func TestScheduleRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler(&fakeTrainer{}, quietLogger())
	if err := s.ScheduleRetraining("not a cron expression"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s := NewScheduler(&fakeTrainer{}, quietLogger())
	if err := s.ScheduleRetraining("0 3 * * 1"); err != nil {
		t.Fatalf("failed to schedule: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should report running")
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected error starting twice")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should report stopped")
	}
	// Stopping a stopped scheduler is a no-op
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestScheduleWhileRunningFails(t *testing.T) {
	s := NewScheduler(&fakeTrainer{}, quietLogger())
	if err := s.ScheduleRetraining("0 3 * * 1"); err != nil {
		t.Fatalf("failed to schedule: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer s.Stop()

	if err := s.ScheduleRetraining("0 4 * * 2"); err == nil {
		t.Fatal("expected error scheduling while running")
	}
}
