package models

import "github.com/google/uuid"

// FeatureVector holds the model-ready features for one (race, driver)
// pair. Every field is derivable from data known before the race
// starts: prior ratings, the published grid and the pre-race weather
// forecast. A built vector is never mutated.
type FeatureVector struct {
	RaceID          uuid.UUID `json:"race_id"`
	DriverID        uuid.UUID `json:"driver_id"`
	Driver          string    `json:"driver"`
	Team            string    `json:"team"`
	DriverElo       float64   `json:"driver_elo"`
	TeamElo         float64   `json:"team_elo"`
	TrackType       string    `json:"track_type"`
	TrackTypeCode   int       `json:"track_type_code"`
	OvertakingScore float64   `json:"overtaking_score"`
	IsWet           bool      `json:"is_wet"`
	GridPosition    int       `json:"grid_position"`
	RecentForm      float64   `json:"recent_form"`
	TrackExperience int       `json:"track_experience"`
	Consistency     float64   `json:"consistency"`
	TeamReliability float64   `json:"team_reliability"`
}

// Values returns the numeric feature columns in their canonical
// order. The ensemble trains and predicts on exactly this layout.
func (f *FeatureVector) Values() []float64 {
	wet := 0.0
	if f.IsWet {
		wet = 1.0
	}
	return []float64{
		f.DriverElo,
		f.TeamElo,
		float64(f.TrackTypeCode),
		f.OvertakingScore,
		wet,
		float64(f.GridPosition),
		f.RecentForm,
		float64(f.TrackExperience),
	}
}

// FeatureNames lists the canonical column names matching Values()
func FeatureNames() []string {
	return []string{
		"driver_elo",
		"team_elo",
		"track_type_code",
		"overtaking_score",
		"is_wet",
		"grid_position",
		"recent_form",
		"track_experience",
	}
}
