package ensemble

import (
	"fmt"
	"time"

	"github.com/yourusername/grid-oracle/internal/models"
)

// TrainingRow is one (race, driver) observation: its feature vector
// and the actual classified finishing position.
type TrainingRow struct {
	Features *models.FeatureVector
	Position float64
	// RaceGroup identifies the race; ranking pairs are only formed
	// within one group.
	RaceGroup string
}

// TrainOptions carries run metadata retained inside the artifact
type TrainOptions struct {
	ModelVersion       string
	TrainingDataCutoff time.Time
	TeamReliability    map[string]float64
	EncoderMappings    map[string]int
}

// Ensemble owns training and inference for the two-model blend. The
// produced artifact is its exclusive output; at inference time the
// artifact is read-only.
type Ensemble struct {
	params HyperParams
}

// New creates an ensemble, validating every hyperparameter
func New(params HyperParams) (*Ensemble, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	return &Ensemble{params: params}, nil
}

// Train fits both sub-models and assembles the artifact, including
// the empirical residual distributions used for uncertainty sampling
// during simulation.
func (e *Ensemble) Train(rows []TrainingRow, opts TrainOptions) (*models.TrainedModelArtifact, error) {
	races := countGroups(rows)
	if races < e.params.MinRaces {
		return nil, &models.InsufficientHistoryError{Races: races, Minimum: e.params.MinRaces}
	}

	raw := make([][]float64, len(rows))
	positions := make([]float64, len(rows))
	groups := make([]string, len(rows))
	for i, row := range rows {
		raw[i] = row.Features.Values()
		positions[i] = row.Position
		groups[i] = row.RaceGroup
	}

	scaler := fitScaler(raw)
	scaled := applyScalerAll(scaler, raw)

	ranker := trainRanker(scaled, positions, groups, e.params)
	calibration := calibrateRanker(ranker, scaled, positions)
	regressor := trainRegressor(scaled, positions, e.params)

	artifact := &models.TrainedModelArtifact{
		ModelVersion:       opts.ModelVersion,
		FeatureNames:       models.FeatureNames(),
		Scaler:             scaler,
		Ranker:             ranker,
		Regressor:          regressor,
		RankerCalibration:  calibration,
		BlendWeightRank:    e.params.BlendWeightRank,
		BlendWeightReg:     e.params.BlendWeightReg,
		DriverResiduals:    make(map[string][]float64),
		TeamReliability:    opts.TeamReliability,
		EncoderMappings:    opts.EncoderMappings,
		TrainingDataCutoff: opts.TrainingDataCutoff,
		TrainingRaces:      races,
		TrainedAt:          time.Now().UTC(),
	}

	// Residuals of the blended prediction, per driver and global.
	// A driver with erratic results gets a wider spread; the
	// simulator samples from exactly these values.
	for i, row := range rows {
		predicted := blend(artifact, scaled[i])
		residual := positions[i] - predicted
		driver := row.Features.Driver
		artifact.DriverResiduals[driver] = append(artifact.DriverResiduals[driver], residual)
		artifact.GlobalResiduals = append(artifact.GlobalResiduals, residual)
	}

	return artifact, nil
}

// Predict returns the blended expected-position score for each
// feature row. Lower score means a better expected finish.
func Predict(artifact *models.TrainedModelArtifact, vectors []*models.FeatureVector) []float64 {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scaled := applyScaler(artifact.Scaler, v.Values())
		scores[i] = blend(artifact, scaled)
	}
	return scores
}

// blend combines the calibrated ranker output with the regressor
// output on the shared position scale.
func blend(artifact *models.TrainedModelArtifact, scaled []float64) float64 {
	rankRaw := predictLinear(artifact.Ranker, scaled)
	rankPos := artifact.RankerCalibration.Slope*rankRaw + artifact.RankerCalibration.Intercept
	regPos := predictLinear(artifact.Regressor, scaled)
	return artifact.BlendWeightRank*rankPos + artifact.BlendWeightReg*regPos
}

func countGroups(rows []TrainingRow) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[row.RaceGroup] = struct{}{}
	}
	return len(seen)
}
