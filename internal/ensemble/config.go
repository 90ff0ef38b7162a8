// Package ensemble trains and applies the two-model prediction
// ensemble: a pairwise ranker optimizing relative order within each
// race and a pointwise regressor targeting absolute finishing
// position, blended into one expected-position score per driver.
package ensemble

import (
	"fmt"
	"math"
)

// MinTrainingRaces is the default floor below which training fails:
// rating and recent-form features are meaningless with less history.
const MinTrainingRaces = 5

// HyperParams enumerates every recognized training option. There is
// no loose key-value configuration; unknown options cannot exist.
type HyperParams struct {
	// LearningRate for both gradient-descent sub-models. Valid (0, 1].
	LearningRate float64
	// Epochs of full passes over the training set. Valid [1, 10000].
	Epochs int
	// BlendWeightRank and BlendWeightReg combine the two sub-model
	// outputs; they must sum to 1.0. Optimal values vary by season
	// and dataset, so they are configurable rather than hard-coded.
	BlendWeightRank float64
	BlendWeightReg  float64
	// MinRaces is the training history floor. Valid >= 2.
	MinRaces int
}

// DefaultHyperParams returns the documented defaults
func DefaultHyperParams() HyperParams {
	return HyperParams{
		LearningRate:    0.03,
		Epochs:          200,
		BlendWeightRank: 0.6,
		BlendWeightReg:  0.4,
		MinRaces:        MinTrainingRaces,
	}
}

// Validate checks every option against its valid range
func (h HyperParams) Validate() error {
	if h.LearningRate <= 0 || h.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %v", h.LearningRate)
	}
	if h.Epochs < 1 || h.Epochs > 10000 {
		return fmt.Errorf("epochs must be in [1, 10000], got %d", h.Epochs)
	}
	if h.BlendWeightRank < 0 || h.BlendWeightReg < 0 {
		return fmt.Errorf("blend weights must be non-negative, got (%v, %v)", h.BlendWeightRank, h.BlendWeightReg)
	}
	if math.Abs(h.BlendWeightRank+h.BlendWeightReg-1.0) > 1e-9 {
		return fmt.Errorf("blend weights must sum to 1.0, got %v", h.BlendWeightRank+h.BlendWeightReg)
	}
	if h.MinRaces < 2 {
		return fmt.Errorf("minimum training races must be >= 2, got %d", h.MinRaces)
	}
	return nil
}
