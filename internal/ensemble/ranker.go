package ensemble

import (
	"math"

	"github.com/yourusername/grid-oracle/internal/models"
)

// trainRanker fits a linear model with a pairwise logistic loss over
// within-race pairs. Finishing position is inherently relative, so
// only pairs from the same race group contribute; there are no
// cross-race comparisons. Higher raw score means better expected
// finish.
func trainRanker(scaled [][]float64, positions []float64, groups []string, params HyperParams) models.LinearModelParams {
	cols := len(scaled[0])
	weights := make([]float64, cols)
	bias := 0.0

	pairs := buildPairs(positions, groups)

	for epoch := 0; epoch < params.Epochs; epoch++ {
		for _, pair := range pairs {
			better, worse := scaled[pair[0]], scaled[pair[1]]
			margin := dot(weights, better) - dot(weights, worse)
			// P(better beats worse); gradient of -log(P)
			p := sigmoid(margin)
			grad := p - 1.0
			for c := 0; c < cols; c++ {
				weights[c] -= params.LearningRate * grad * (better[c] - worse[c])
			}
		}
	}
	return models.LinearModelParams{Weights: weights, Bias: bias}
}

// buildPairs enumerates (better, worse) index pairs within each race
// group, in deterministic input order.
func buildPairs(positions []float64, groups []string) [][2]int {
	byGroup := make(map[string][]int)
	var order []string
	for i, g := range groups {
		if _, ok := byGroup[g]; !ok {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], i)
	}

	var pairs [][2]int
	for _, g := range order {
		idx := byGroup[g]
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				i, j := idx[a], idx[b]
				switch {
				case positions[i] < positions[j]:
					pairs = append(pairs, [2]int{i, j})
				case positions[j] < positions[i]:
					pairs = append(pairs, [2]int{j, i})
				}
				// Ties contribute nothing
			}
		}
	}
	return pairs
}

// calibrateRanker fits position ~ slope*score + intercept by least
// squares, so raw ranker scores land on the same scale as the
// regressor output before blending.
func calibrateRanker(model models.LinearModelParams, scaled [][]float64, positions []float64) models.CalibrationParams {
	n := float64(len(scaled))
	if n == 0 {
		return models.CalibrationParams{}
	}

	scores := make([]float64, len(scaled))
	var meanScore, meanPos float64
	for i, row := range scaled {
		scores[i] = dot(model.Weights, row) + model.Bias
		meanScore += scores[i]
		meanPos += positions[i]
	}
	meanScore /= n
	meanPos /= n

	var cov, variance float64
	for i := range scores {
		ds := scores[i] - meanScore
		cov += ds * (positions[i] - meanPos)
		variance += ds * ds
	}
	if variance == 0 {
		// Untrained or degenerate ranker: calibrate to the mean
		// position so the blend degrades to the regressor signal.
		return models.CalibrationParams{Slope: 0, Intercept: meanPos}
	}
	slope := cov / variance
	return models.CalibrationParams{Slope: slope, Intercept: meanPos - slope*meanScore}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
