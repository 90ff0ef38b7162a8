package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// LinearModelParams holds the fitted parameters of one linear sub-model
type LinearModelParams struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// ScalerParams holds per-column standardization statistics
type ScalerParams struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// CalibrationParams maps raw ranker scores onto the position scale
// via position ≈ Slope*score + Intercept
type CalibrationParams struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// TrainedModelArtifact is the serialized output of one training run.
// It is written once at training time and read-only afterwards; the
// simulator consumes it as an immutable snapshot.
type TrainedModelArtifact struct {
	ModelVersion       string               `json:"model_version"`
	FeatureNames       []string             `json:"feature_names"`
	Scaler             ScalerParams         `json:"scaler"`
	Ranker             LinearModelParams    `json:"ranker_params"`
	Regressor          LinearModelParams    `json:"regressor_params"`
	RankerCalibration  CalibrationParams    `json:"ranker_calibration"`
	BlendWeightRank    float64              `json:"blend_weight_rank"`
	BlendWeightReg     float64              `json:"blend_weight_reg"`
	DriverResiduals    map[string][]float64 `json:"driver_residuals"`
	GlobalResiduals    []float64            `json:"global_residuals"`
	TeamReliability    map[string]float64   `json:"team_reliability"`
	EncoderMappings    map[string]int       `json:"encoder_mappings"`
	TrainingDataCutoff time.Time            `json:"training_data_cutoff"`
	TrainingRaces      int                  `json:"training_races"`
	TrainedAt          time.Time            `json:"trained_at"`
}

// Marshal serializes the artifact for storage. Mapping names and
// types round-trip exactly through Unmarshal.
func (a *TrainedModelArtifact) Marshal() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model artifact: %w", err)
	}
	return data, nil
}

// UnmarshalArtifact deserializes an artifact blob
func UnmarshalArtifact(data []byte) (*TrainedModelArtifact, error) {
	artifact := &TrainedModelArtifact{}
	if err := json.Unmarshal(data, artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model artifact: %w", err)
	}
	return artifact, nil
}

// ResidualsFor returns the residual distribution for a driver, falling
// back to the global distribution when the driver has fewer than
// minSamples residuals on record.
func (a *TrainedModelArtifact) ResidualsFor(driver string, minSamples int) []float64 {
	if res, ok := a.DriverResiduals[driver]; ok && len(res) >= minSamples {
		return res
	}
	return a.GlobalResiduals
}

// ReliabilityFor returns the finish rate for a team, or the neutral
// default when the team has no history.
func (a *TrainedModelArtifact) ReliabilityFor(team string, fallback float64) float64 {
	if rel, ok := a.TeamReliability[team]; ok {
		return rel
	}
	return fallback
}
