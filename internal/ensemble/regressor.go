package ensemble

import "github.com/yourusername/grid-oracle/internal/models"

// trainRegressor fits a linear least-squares model against absolute
// finishing position by full-batch gradient descent. It provides the
// calibrated absolute-scale signal that complements the purely
// relative ranker.
func trainRegressor(scaled [][]float64, positions []float64, params HyperParams) models.LinearModelParams {
	cols := len(scaled[0])
	n := float64(len(scaled))
	weights := make([]float64, cols)
	bias := 0.0

	grad := make([]float64, cols)
	for epoch := 0; epoch < params.Epochs; epoch++ {
		for c := range grad {
			grad[c] = 0
		}
		biasGrad := 0.0
		for i, row := range scaled {
			err := dot(weights, row) + bias - positions[i]
			for c := 0; c < cols; c++ {
				grad[c] += err * row[c]
			}
			biasGrad += err
		}
		for c := 0; c < cols; c++ {
			weights[c] -= params.LearningRate * grad[c] / n
		}
		bias -= params.LearningRate * biasGrad / n
	}
	return models.LinearModelParams{Weights: weights, Bias: bias}
}

// predictLinear evaluates a linear sub-model on one scaled row
func predictLinear(model models.LinearModelParams, row []float64) float64 {
	return dot(model.Weights, row) + model.Bias
}
