// Package evaluation measures prediction quality with walk-forward
// splits over the completed race history.
package evaluation

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// FoldMetrics measures prediction quality on one held-out race
type FoldMetrics struct {
	Drivers         int     `json:"drivers"`
	WinnerHit       bool    `json:"winner_hit"`
	PodiumPrecision float64 `json:"podium_precision"`
	MeanAbsError    float64 `json:"mean_abs_error"`
	RankCorrelation float64 `json:"rank_correlation"`
}

// Metrics aggregates fold metrics over a walk-forward run
type Metrics struct {
	Races           int       `json:"races"`
	Predictions     int       `json:"predictions"`
	WinnerHitRate   float64   `json:"winner_hit_rate"`
	PodiumPrecision float64   `json:"podium_precision"`
	MeanAbsError    float64   `json:"mean_abs_error"`
	RankCorrelation float64   `json:"rank_correlation"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

// calculateFold compares the model's predicted order with the actual
// classified finishing positions. scores are blended expected
// positions, lower is better; actual holds the real positions for the
// same drivers in the same order.
func calculateFold(scores, actual []float64) FoldMetrics {
	n := len(scores)
	ranks := rankAscending(scores)

	metrics := FoldMetrics{Drivers: n}
	absErr := 0.0
	for i := 0; i < n; i++ {
		absErr += math.Abs(ranks[i] - actual[i])
		if actual[i] == 1 && ranks[i] == 1 {
			metrics.WinnerHit = true
		}
	}
	metrics.MeanAbsError = absErr / float64(n)
	metrics.PodiumPrecision = podiumPrecision(ranks, actual)
	metrics.RankCorrelation = spearman(ranks, actual)
	return metrics
}

// rankAscending converts scores into 1-based ranks, best score first.
// Ties keep input order.
func rankAscending(scores []float64) []float64 {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	ranks := make([]float64, len(scores))
	for rank, idx := range order {
		ranks[idx] = float64(rank + 1)
	}
	return ranks
}

// podiumPrecision is the fraction of predicted podium slots filled by
// drivers who actually finished on the podium.
func podiumPrecision(ranks, actual []float64) float64 {
	slots := 3
	if len(ranks) < slots {
		slots = len(ranks)
	}
	if slots == 0 {
		return 0
	}
	hits := 0
	for i := range ranks {
		if ranks[i] <= float64(slots) && actual[i] <= float64(slots) {
			hits++
		}
	}
	return float64(hits) / float64(slots)
}

// spearman is the rank correlation between predicted and actual
// finishing order. Both inputs are already on a rank scale.
func spearman(ranks, actual []float64) float64 {
	n := len(ranks)
	if n < 2 {
		return 0
	}
	meanR := mean(ranks)
	meanA := mean(actual)

	var cov, varR, varA float64
	for i := 0; i < n; i++ {
		dr := ranks[i] - meanR
		da := actual[i] - meanA
		cov += dr * da
		varR += dr * dr
		varA += da * da
	}
	if varR == 0 || varA == 0 {
		return 0
	}
	return cov / math.Sqrt(varR*varA)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
