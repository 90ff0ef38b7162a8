package ensemble

import (
	"math"

	"github.com/yourusername/grid-oracle/internal/models"
)

// fitScaler computes per-column standardization statistics.
// Zero-variance columns get std 1 so scaling stays a no-op for them.
func fitScaler(rows [][]float64) models.ScalerParams {
	if len(rows) == 0 {
		return models.ScalerParams{}
	}
	cols := len(rows[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)

	for _, row := range rows {
		for c, v := range row {
			means[c] += v
		}
	}
	for c := range means {
		means[c] /= float64(len(rows))
	}
	for _, row := range rows {
		for c, v := range row {
			diff := v - means[c]
			stds[c] += diff * diff
		}
	}
	for c := range stds {
		stds[c] = math.Sqrt(stds[c] / float64(len(rows)))
		if stds[c] == 0 {
			stds[c] = 1
		}
	}
	return models.ScalerParams{Means: means, Stds: stds}
}

// applyScaler standardizes one row
func applyScaler(scaler models.ScalerParams, row []float64) []float64 {
	out := make([]float64, len(row))
	for c, v := range row {
		out[c] = (v - scaler.Means[c]) / scaler.Stds[c]
	}
	return out
}

func applyScalerAll(scaler models.ScalerParams, rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = applyScaler(scaler, row)
	}
	return out
}
