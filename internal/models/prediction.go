package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionResult represents the aggregated simulation outcome for
// one driver in one race.
//
// Invariants for a fixed race: win probabilities sum to 1.0 across
// drivers (barring all-DNF trials, tracked in diagnostics) and for a
// fixed driver Win <= Podium <= Top10.
type PredictionResult struct {
	RaceID            uuid.UUID `db:"race_id" json:"race_id" validate:"required"`
	DriverID          uuid.UUID `db:"driver_id" json:"driver_id" validate:"required"`
	Driver            string    `db:"driver" json:"driver"`
	Team              string    `db:"team" json:"team"`
	GridPosition      int       `db:"grid_position" json:"grid_position"`
	WinProbability    float64   `db:"win_probability" json:"win_probability" validate:"gte=0,lte=1"`
	PodiumProbability float64   `db:"podium_probability" json:"podium_probability" validate:"gte=0,lte=1"`
	Top10Probability  float64   `db:"top10_probability" json:"top10_probability" validate:"gte=0,lte=1"`
	DNFProbability    float64   `db:"dnf_probability" json:"dnf_probability" validate:"gte=0,lte=1"`
	AvgFinishPosition float64   `db:"avg_finish_position" json:"avg_finish_position"`
	SimulationCount   int       `db:"simulation_count" json:"simulation_count"`
	ModelVersion      string    `db:"model_version" json:"model_version"`
	PredictedAt       time.Time `db:"predicted_at" json:"predicted_at"`
}

// SimulationDiagnostics records degraded conditions encountered
// during a simulation run. Degraded trials still contribute to the
// aggregate; they are flagged here instead of aborting the batch.
type SimulationDiagnostics struct {
	Trials         int           `json:"trials"`
	DegradedTrials int           `json:"degraded_trials"`
	IncidentTrials int           `json:"incident_trials"`
	AllDNFTrials   int           `json:"all_dnf_trials"`
	Duration       time.Duration `json:"duration"`
}
