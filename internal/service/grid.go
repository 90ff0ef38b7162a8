package service

import (
	"sort"

	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/rating"
)

// Blend used to project a starting grid before qualifying has run
const (
	projectionDriverWeight = 0.6
	projectionTeamWeight   = 0.4
)

// projectGrid fills missing grid slots from blended Elo. Entries that
// already hold a qualifying position keep it; the rest are ranked by
// blended driver/team rating and placed into the free slots, strongest
// blend first. The input entries are not mutated.
func projectGrid(entries []*models.DriverResult, ratings *rating.Snapshot) []*models.DriverResult {
	out := make([]*models.DriverResult, len(entries))
	taken := make(map[int]bool, len(entries))
	var missing []*models.DriverResult
	for i, e := range entries {
		copied := *e
		out[i] = &copied
		if copied.Grid != nil && *copied.Grid > 0 {
			taken[*copied.Grid] = true
		} else {
			missing = append(missing, out[i])
		}
	}
	if len(missing) == 0 {
		return out
	}

	sort.SliceStable(missing, func(i, j int) bool {
		return blendedElo(missing[i], ratings) > blendedElo(missing[j], ratings)
	})

	slot := 1
	for _, e := range missing {
		for taken[slot] {
			slot++
		}
		grid := slot
		e.Grid = &grid
		taken[slot] = true
	}
	return out
}

func blendedElo(e *models.DriverResult, ratings *rating.Snapshot) float64 {
	return projectionDriverWeight*ratings.Rating(models.EntityDriver, e.Driver) +
		projectionTeamWeight*ratings.Rating(models.EntityTeam, e.Team)
}
