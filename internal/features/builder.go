package features

import (
	"math"

	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/rating"
)

// Neutral defaults used when a driver or team has too little history.
// New drivers and circuits are the normal case, not an anomaly.
const (
	NeutralFinish      = 10.5 // league-average finish in a 20-car field
	NeutralConsistency = 3.0
	NeutralReliability = 0.85

	formWindow        = 3
	consistencyWindow = 5
	reliabilityWindow = 10
)

// Builder derives one FeatureVector per (race, driver) from prior
// race records plus a pre-race ratings snapshot. Only information
// available before the race starts enters a vector.
type Builder struct {
	encoder *CategoryEncoder
}

// NewBuilder creates a builder with an encoder fitted on the track
// type vocabulary.
func NewBuilder() *Builder {
	enc := NewCategoryEncoder()
	enc.Fit(TrackTypes())
	return &Builder{encoder: enc}
}

// NewBuilderWithEncoder creates a builder around a restored encoder,
// as loaded from a trained model artifact.
func NewBuilderWithEncoder(enc *CategoryEncoder) *Builder {
	return &Builder{encoder: enc}
}

// Encoder exposes the fitted category encoder
func (b *Builder) Encoder() *CategoryEncoder {
	return b.encoder
}

// Build derives the feature vector for one driver in one race.
//
// Missing grid position or track metadata is fatal; thin recent-form
// or circuit history degrades to neutral defaults instead.
func (b *Builder) Build(race *models.Race, entry *models.DriverResult, weather *models.RaceWeather, ratings *rating.Snapshot, history []*models.RaceRecord) (*models.FeatureVector, error) {
	if race == nil {
		return nil, &models.DataIncompleteError{Field: "race"}
	}
	dna, err := LookupTrackDNA(race.Circuit)
	if err != nil {
		return nil, err
	}
	if entry.Grid == nil || *entry.Grid <= 0 {
		return nil, &models.DataIncompleteError{RaceID: race.ID.String(), Field: "grid_position"}
	}

	isWet := weather != nil && weather.Rainfall
	priorPositions := driverPositions(entry.Driver, history)

	vector := &models.FeatureVector{
		RaceID:          race.ID,
		DriverID:        entry.DriverID,
		Driver:          entry.Driver,
		Team:            entry.Team,
		DriverElo:       ratings.Rating(models.EntityDriver, entry.Driver),
		TeamElo:         ratings.Rating(models.EntityTeam, entry.Team),
		TrackType:       dna.Type,
		TrackTypeCode:   b.encoder.Transform(dna.Type),
		OvertakingScore: float64(dna.Overtaking),
		IsWet:           isWet,
		GridPosition:    *entry.Grid,
		RecentForm:      recentForm(priorPositions),
		TrackExperience: trackExperience(entry.Driver, race.Circuit, history),
		Consistency:     consistency(priorPositions),
		TeamReliability: teamReliability(entry.Team, history),
	}
	return vector, nil
}

// driverPositions collects the driver's classified finishes from
// prior races, most recent last. The caller guarantees history only
// contains races strictly before the target race.
func driverPositions(driver string, history []*models.RaceRecord) []float64 {
	var positions []float64
	for _, record := range history {
		for _, result := range record.Results {
			if result.Driver == driver && result.Position != nil && *result.Position > 0 {
				positions = append(positions, float64(*result.Position))
			}
		}
	}
	return positions
}

// recentForm averages the last formWindow finishes, or returns the
// neutral league-average finish with no history.
func recentForm(positions []float64) float64 {
	if len(positions) == 0 {
		return NeutralFinish
	}
	window := positions
	if len(window) > formWindow {
		window = window[len(window)-formWindow:]
	}
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	return sum / float64(len(window))
}

// consistency is the standard deviation of recent finishes; erratic
// drivers get wider simulation noise downstream.
func consistency(positions []float64) float64 {
	window := positions
	if len(window) > consistencyWindow {
		window = window[len(window)-consistencyWindow:]
	}
	if len(window) < 2 {
		return NeutralConsistency
	}
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(len(window))
	variance := 0.0
	for _, p := range window {
		diff := p - mean
		variance += diff * diff
	}
	variance /= float64(len(window))
	return math.Sqrt(variance)
}

// trackExperience counts the driver's prior starts at this circuit
func trackExperience(driver, circuit string, history []*models.RaceRecord) int {
	count := 0
	for _, record := range history {
		if record.Race == nil || record.Race.Circuit != circuit {
			continue
		}
		for _, result := range record.Results {
			if result.Driver == driver {
				count++
			}
		}
	}
	return count
}

// teamReliability is the team's finish rate over its most recent
// starts, clamped to the reliability window.
func teamReliability(team string, history []*models.RaceRecord) float64 {
	var finished, total int
	for i := len(history) - 1; i >= 0 && total < reliabilityWindow; i-- {
		for _, result := range history[i].Results {
			if result.Team != team {
				continue
			}
			total++
			if result.Finished() {
				finished++
			}
			if total >= reliabilityWindow {
				break
			}
		}
	}
	if total == 0 {
		return NeutralReliability
	}
	return float64(finished) / float64(total)
}

// TeamReliabilities aggregates finish rates for every team in the
// history, for retention inside a trained artifact.
func TeamReliabilities(history []*models.RaceRecord) map[string]float64 {
	finished := make(map[string]int)
	total := make(map[string]int)
	for _, record := range history {
		for _, result := range record.Results {
			total[result.Team]++
			if result.Finished() {
				finished[result.Team]++
			}
		}
	}
	out := make(map[string]float64, len(total))
	for team, n := range total {
		out[team] = float64(finished[team]) / float64(n)
	}
	return out
}
