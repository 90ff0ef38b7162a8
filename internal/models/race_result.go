package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Finishing statuses as recorded by the data ingestion pipeline.
const (
	StatusFinished = "Finished"
	StatusLapped   = "+1 Lap"
	StatusDNF      = "DNF"
)

// DriverResult represents one driver's finishing record in a race
type DriverResult struct {
	RaceID   uuid.UUID       `db:"race_id" json:"race_id" validate:"required"`
	DriverID uuid.UUID       `db:"driver_id" json:"driver_id" validate:"required"`
	Driver   string          `db:"driver" json:"driver" validate:"required"`
	Team     string          `db:"team" json:"team" validate:"required"`
	Grid     *int            `db:"grid" json:"grid"`
	Position *int            `db:"position" json:"position"`
	Status   string          `db:"status" json:"status"`
	Points   decimal.Decimal `db:"points" json:"points"`
	Laps     int             `db:"laps" json:"laps"`
	PitStops int             `db:"pit_stops" json:"pit_stops"`
}

// Finished reports whether the driver was classified as a finisher.
// Lapped cars count as finished; anything else is a retirement.
func (r *DriverResult) Finished() bool {
	return r.Status == StatusFinished || r.Status == StatusLapped
}

// GridPosition returns the starting position or 0 if unknown
func (r *DriverResult) GridPosition() int {
	if r.Grid == nil {
		return 0
	}
	return *r.Grid
}

// FinishPosition returns the classified position or 0 if unclassified
func (r *DriverResult) FinishPosition() int {
	if r.Position == nil {
		return 0
	}
	return *r.Position
}

// RaceWeather holds the pre-race weather aggregate for a race
type RaceWeather struct {
	RaceID    uuid.UUID `db:"race_id" json:"race_id"`
	AirTemp   float64   `db:"air_temp" json:"air_temp"`
	TrackTemp float64   `db:"track_temp" json:"track_temp"`
	Humidity  float64   `db:"humidity" json:"humidity"`
	Rainfall  bool      `db:"rainfall" json:"rainfall"`
	WindSpeed float64   `db:"wind_speed" json:"wind_speed"`
}

// RaceRecord bundles everything known about one completed race:
// the race itself, its ordered finishing results and the weather
// aggregate. It is the unit the rating replay and the training
// dataset builder consume.
type RaceRecord struct {
	Race    *Race
	Results []*DriverResult
	Weather *RaceWeather
	Time    time.Time
}
