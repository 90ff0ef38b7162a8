package models

import (
	"time"

	"github.com/google/uuid"
)

// Race represents a grand prix event in the system
type Race struct {
	ID             uuid.UUID  `db:"id" json:"id" validate:"required,uuid4"`
	Season         int        `db:"season" json:"season" validate:"required,gte=1950"`
	Round          int        `db:"round" json:"round" validate:"required,gt=0"`
	Name           string     `db:"name" json:"name" validate:"required"`
	Circuit        string     `db:"circuit" json:"circuit" validate:"required"`
	ScheduledStart time.Time  `db:"scheduled_start" json:"scheduled_start" validate:"required"`
	ActualStart    *time.Time `db:"actual_start" json:"actual_start"`
	TotalLaps      int        `db:"total_laps" json:"total_laps"`
	Status         string     `db:"status" json:"status" validate:"oneof=scheduled started finished cancelled"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsUpcoming checks if the race hasn't started yet
func (r *Race) IsUpcoming() bool {
	return r.ActualStart == nil && r.Status == "scheduled"
}

// IsFinished checks if the race has completed
func (r *Race) IsFinished() bool {
	return r.Status == "finished"
}

// Before reports whether r ran earlier in the calendar than other.
// Rating replay and training splits order races by (season, round),
// never by insertion order.
func (r *Race) Before(other *Race) bool {
	if r.Season != other.Season {
		return r.Season < other.Season
	}
	return r.Round < other.Round
}

// TimeToStart returns the duration until race start
func (r *Race) TimeToStart() time.Duration {
	return time.Until(r.ScheduledStart)
}
