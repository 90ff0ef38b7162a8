package simulation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/grid-oracle/internal/models"
)

// aggregate folds all trial outcomes into per-driver probabilities.
//
// Win/podium/top10 fractions use the full trial count as denominator.
// DNF trials are excluded from the positional average but counted in
// the DNF probability. In a trial where every driver retires nobody
// earns a win credit; such trials are surfaced in the diagnostics.
func aggregate(raceID uuid.UUID, vectors []*models.FeatureVector, outcomes []trialOutcome, modelVersion string) ([]models.PredictionResult, models.SimulationDiagnostics) {
	n := len(vectors)
	trials := len(outcomes)

	wins := make([]int, n)
	podiums := make([]int, n)
	top10 := make([]int, n)
	dnfs := make([]int, n)
	positionSum := make([]float64, n)
	finishes := make([]int, n)

	diagnostics := models.SimulationDiagnostics{Trials: trials}

	for _, outcome := range outcomes {
		if outcome.degraded {
			diagnostics.DegradedTrials++
		}
		if outcome.incident {
			diagnostics.IncidentTrials++
		}
		anyFinisher := false
		for i, pos := range outcome.positions {
			if pos == dnfRank {
				dnfs[i]++
				continue
			}
			anyFinisher = true
			positionSum[i] += float64(pos)
			finishes[i]++
			if pos == 1 {
				wins[i]++
			}
			if pos <= 3 {
				podiums[i]++
			}
			if pos <= 10 {
				top10[i]++
			}
		}
		if !anyFinisher {
			diagnostics.AllDNFTrials++
		}
	}

	now := time.Now().UTC()
	results := make([]models.PredictionResult, n)
	for i, v := range vectors {
		avgFinish := float64(n)
		if finishes[i] > 0 {
			avgFinish = positionSum[i] / float64(finishes[i])
		}
		results[i] = models.PredictionResult{
			RaceID:            raceID,
			DriverID:          v.DriverID,
			Driver:            v.Driver,
			Team:              v.Team,
			GridPosition:      v.GridPosition,
			WinProbability:    float64(wins[i]) / float64(trials),
			PodiumProbability: float64(podiums[i]) / float64(trials),
			Top10Probability:  float64(top10[i]) / float64(trials),
			DNFProbability:    float64(dnfs[i]) / float64(trials),
			AvgFinishPosition: avgFinish,
			SimulationCount:   trials,
			ModelVersion:      modelVersion,
			PredictedAt:       now,
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].WinProbability != results[b].WinProbability {
			return results[a].WinProbability > results[b].WinProbability
		}
		return results[a].AvgFinishPosition < results[b].AvgFinishPosition
	})

	return results, diagnostics
}
