// Package rating maintains evolving Elo skill ratings for drivers and
// teams, updated race-by-race from finishing order.
package rating

import (
	"math"
	"sync"

	"github.com/yourusername/grid-oracle/internal/models"
)

// Default K factors. Higher K makes ratings swing harder on each race.
const (
	DefaultDriverK = 32.0
	DefaultTeamK   = 32.0
)

// RaceEntry identifies one participant in a race's finishing order
type RaceEntry struct {
	Driver string
	Team   string
}

// Tracker owns the driver and team rating pools. It is the sole
// mutator of ratings; feature building reads immutable snapshots.
//
// Updates across races are order-dependent: replaying the same
// chronological sequence from the same initial state always yields
// the same final ratings.
type Tracker struct {
	mu      sync.RWMutex
	drivers map[string]float64
	teams   map[string]float64
	base    float64
	driverK float64
	teamK   float64
}

// NewTracker creates a tracker with every entity at the base rating
func NewTracker() *Tracker {
	return NewTrackerWithK(DefaultDriverK, DefaultTeamK)
}

// NewTrackerWithK creates a tracker with explicit K factors per pool
func NewTrackerWithK(driverK, teamK float64) *Tracker {
	return &Tracker{
		drivers: make(map[string]float64),
		teams:   make(map[string]float64),
		base:    models.BaseRating,
		driverK: driverK,
		teamK:   teamK,
	}
}

// Rating returns the current rating for an entity. Unseen entities
// default to the base rating; first appearance is never an error.
func (t *Tracker) Rating(entityType models.EntityType, id string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rating(entityType, id)
}

func (t *Tracker) rating(entityType models.EntityType, id string) float64 {
	pool := t.drivers
	if entityType == models.EntityTeam {
		pool = t.teams
	}
	if r, ok := pool[id]; ok {
		return r
	}
	return t.base
}

// Update applies one race's finishing order to both rating pools.
// entries must be sorted by finishing position, best first.
//
// All pairwise deltas are computed from a snapshot of the pre-race
// ratings and applied afterwards, so the iteration order of pairs
// within a race cannot bias the result.
func (t *Tracker) Update(entries []RaceEntry) {
	if len(entries) < 2 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Pre-race snapshot. Every expectation below reads from these
	// maps, never from the accumulating deltas.
	preDrivers := make(map[string]float64, len(entries))
	preTeams := make(map[string]float64, len(entries))
	for _, e := range entries {
		preDrivers[e.Driver] = t.rating(models.EntityDriver, e.Driver)
		preTeams[e.Team] = t.rating(models.EntityTeam, e.Team)
	}

	driverDeltas := make(map[string]float64, len(entries))
	teamDeltas := make(map[string]float64, len(entries))

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			ahead, behind := entries[i], entries[j]

			expected := expectedScore(preDrivers[ahead.Driver], preDrivers[behind.Driver])
			delta := t.driverK * (1.0 - expected)
			driverDeltas[ahead.Driver] += delta
			driverDeltas[behind.Driver] -= delta

			if ahead.Team != behind.Team {
				teamExpected := expectedScore(preTeams[ahead.Team], preTeams[behind.Team])
				teamDelta := t.teamK * (1.0 - teamExpected)
				teamDeltas[ahead.Team] += teamDelta
				teamDeltas[behind.Team] -= teamDelta
			}
		}
	}

	for id, delta := range driverDeltas {
		t.drivers[id] = preDrivers[id] + delta
	}
	for id, delta := range teamDeltas {
		t.teams[id] = preTeams[id] + delta
	}
}

// expectedScore is the logistic Elo win expectation for a against b
func expectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// Snapshot returns an immutable copy of both rating pools. The copy
// taken before a race is what feature building for that race reads.
func (t *Tracker) Snapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	drivers := make(map[string]float64, len(t.drivers))
	for k, v := range t.drivers {
		drivers[k] = v
	}
	teams := make(map[string]float64, len(t.teams))
	for k, v := range t.teams {
		teams[k] = v
	}
	return &Snapshot{drivers: drivers, teams: teams, base: t.base}
}

// TrackedEntities returns the number of rated drivers and teams
func (t *Tracker) TrackedEntities() (drivers, teams int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.drivers), len(t.teams)
}

// Snapshot is a read-only copy of the rating pools as of one race
type Snapshot struct {
	drivers map[string]float64
	teams   map[string]float64
	base    float64
}

// Drivers returns a copy of the snapshotted driver pool
func (s *Snapshot) Drivers() map[string]float64 {
	out := make(map[string]float64, len(s.drivers))
	for k, v := range s.drivers {
		out[k] = v
	}
	return out
}

// Teams returns a copy of the snapshotted team pool
func (s *Snapshot) Teams() map[string]float64 {
	out := make(map[string]float64, len(s.teams))
	for k, v := range s.teams {
		out[k] = v
	}
	return out
}

// Rating returns the snapshotted rating for an entity, defaulting to
// the base rating for unseen entities.
func (s *Snapshot) Rating(entityType models.EntityType, id string) float64 {
	pool := s.drivers
	if entityType == models.EntityTeam {
		pool = s.teams
	}
	if r, ok := pool[id]; ok {
		return r
	}
	return s.base
}
