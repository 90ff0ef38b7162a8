// Package features derives model-ready feature vectors from raw
// historical race records, current ratings and static circuit
// metadata.
package features

import (
	"sort"
	"strings"

	"github.com/yourusername/grid-oracle/internal/models"
)

// TrackDNA captures the static layout characteristics of a circuit
// relevant to overtaking and race variance.
type TrackDNA struct {
	Type       string
	Overtaking int
}

// Track type vocabulary. The category encoder is fitted on this set.
const (
	TrackBalanced     = "balanced"
	TrackStreetFast   = "street_fast"
	TrackStreetSlow   = "street_slow"
	TrackTechnical    = "technical"
	TrackPower        = "power"
	TrackHighSpeed    = "high_speed"
	TrackHighAltitude = "high_altitude"
)

// trackDNA is the in-core constant metadata table, keyed by circuit
// name fragment. It is never fetched dynamically.
var trackDNA = map[string]TrackDNA{
	"Bahrain":     {Type: TrackBalanced, Overtaking: 8},
	"Saudi":       {Type: TrackStreetFast, Overtaking: 7},
	"Australia":   {Type: TrackStreetFast, Overtaking: 6},
	"Japan":       {Type: TrackTechnical, Overtaking: 4},
	"China":       {Type: TrackBalanced, Overtaking: 7},
	"Miami":       {Type: TrackStreetFast, Overtaking: 6},
	"Emilia":      {Type: TrackTechnical, Overtaking: 3},
	"Monaco":      {Type: TrackStreetSlow, Overtaking: 1},
	"Canada":      {Type: TrackStreetFast, Overtaking: 7},
	"Spain":       {Type: TrackTechnical, Overtaking: 5},
	"Austria":     {Type: TrackPower, Overtaking: 8},
	"Britain":     {Type: TrackHighSpeed, Overtaking: 7},
	"Hungary":     {Type: TrackTechnical, Overtaking: 3},
	"Belgium":     {Type: TrackHighSpeed, Overtaking: 9},
	"Netherlands": {Type: TrackTechnical, Overtaking: 4},
	"Italy":       {Type: TrackPower, Overtaking: 8},
	"Azerbaijan":  {Type: TrackStreetFast, Overtaking: 8},
	"Singapore":   {Type: TrackStreetSlow, Overtaking: 2},
	"Austin":      {Type: TrackBalanced, Overtaking: 7},
	"Mexico":      {Type: TrackHighAltitude, Overtaking: 6},
	"Brazil":      {Type: TrackBalanced, Overtaking: 9},
	"Las Vegas":   {Type: TrackStreetFast, Overtaking: 8},
	"Qatar":       {Type: TrackHighSpeed, Overtaking: 6},
	"Abu Dhabi":   {Type: TrackBalanced, Overtaking: 5},
}

// LookupTrackDNA resolves circuit metadata by name fragment. Circuits
// absent from the table return an UnknownCircuitError naming the
// circuit; there is no silent fallback.
func LookupTrackDNA(circuit string) (TrackDNA, error) {
	for fragment, dna := range trackDNA {
		if strings.Contains(circuit, fragment) {
			return dna, nil
		}
	}
	return TrackDNA{}, &models.UnknownCircuitError{Circuit: circuit}
}

// TrackTypes returns the sorted track type vocabulary
func TrackTypes() []string {
	seen := make(map[string]struct{})
	for _, dna := range trackDNA {
		seen[dna.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
