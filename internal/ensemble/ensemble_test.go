package ensemble

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/grid-oracle/internal/models"
)

// syntheticRows builds races where driver order follows rating and
// grid exactly: the strongest driver always wins.
func syntheticRows(races int) []TrainingRow {
	drivers := []struct {
		name string
		team string
		elo  float64
	}{
		{"ALPHA", "T1", 1650},
		{"BRAVO", "T2", 1550},
		{"CHARLIE", "T3", 1450},
		{"DELTA", "T4", 1350},
	}

	var rows []TrainingRow
	for r := 0; r < races; r++ {
		group := fmt.Sprintf("race-%d", r)
		for pos, d := range drivers {
			rows = append(rows, TrainingRow{
				Features: &models.FeatureVector{
					RaceID:          uuid.New(),
					DriverID:        uuid.New(),
					Driver:          d.name,
					Team:            d.team,
					DriverElo:       d.elo,
					TeamElo:         d.elo - 20,
					TrackTypeCode:   0,
					OvertakingScore: 5,
					GridPosition:    pos + 1,
					RecentForm:      float64(pos + 1),
					TrackExperience: r,
				},
				Position:  float64(pos + 1),
				RaceGroup: group,
			})
		}
	}
	return rows
}

func trainedArtifact(t *testing.T, races int) *models.TrainedModelArtifact {
	t.Helper()
	ens, err := New(DefaultHyperParams())
	if err != nil {
		t.Fatalf("failed to build ensemble: %v", err)
	}
	artifact, err := ens.Train(syntheticRows(races), TrainOptions{
		ModelVersion:       "v-test",
		TrainingDataCutoff: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		TeamReliability:    map[string]float64{"T1": 0.95},
		EncoderMappings:    map[string]int{"balanced": 0},
	})
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	return artifact
}

func TestTrainInsufficientHistory(t *testing.T) {
	ens, err := New(DefaultHyperParams())
	if err != nil {
		t.Fatalf("failed to build ensemble: %v", err)
	}

	_, err = ens.Train(syntheticRows(3), TrainOptions{ModelVersion: "v-test"})
	var insufficientErr *models.InsufficientHistoryError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
	if insufficientErr.Races != 3 || insufficientErr.Minimum != MinTrainingRaces {
		t.Fatalf("error should carry counts, got %+v", insufficientErr)
	}
}

func TestHyperParamValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*HyperParams)
	}{
		{"zero learning rate", func(h *HyperParams) { h.LearningRate = 0 }},
		{"blend weights not summing", func(h *HyperParams) { h.BlendWeightRank = 0.9 }},
		{"negative blend weight", func(h *HyperParams) { h.BlendWeightRank = -0.2; h.BlendWeightReg = 1.2 }},
		{"zero epochs", func(h *HyperParams) { h.Epochs = 0 }},
		{"min races too low", func(h *HyperParams) { h.MinRaces = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultHyperParams()
			tc.mutate(&params)
			if _, err := New(params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPredictOrdersDominantDriverFirst(t *testing.T) {
	artifact := trainedArtifact(t, 8)

	rows := syntheticRows(1)
	vectors := make([]*models.FeatureVector, len(rows))
	for i, r := range rows {
		vectors[i] = r.Features
	}

	scores := Predict(artifact, vectors)
	if len(scores) != len(vectors) {
		t.Fatalf("expected %d scores, got %d", len(vectors), len(scores))
	}
	for i := 1; i < len(scores); i++ {
		if scores[i-1] >= scores[i] {
			t.Fatalf("scores should increase down the field: %v", scores)
		}
	}
}

func TestResidualsRetainedPerDriver(t *testing.T) {
	artifact := trainedArtifact(t, 6)

	if len(artifact.GlobalResiduals) != 6*4 {
		t.Fatalf("expected one global residual per row, got %d", len(artifact.GlobalResiduals))
	}
	for _, driver := range []string{"ALPHA", "BRAVO", "CHARLIE", "DELTA"} {
		if len(artifact.DriverResiduals[driver]) != 6 {
			t.Fatalf("expected 6 residuals for %s, got %d", driver, len(artifact.DriverResiduals[driver]))
		}
	}

	// A driver with thin history falls back to the global pool
	if got := artifact.ResidualsFor("ROOKIE", 5); !reflect.DeepEqual(got, artifact.GlobalResiduals) {
		t.Fatal("unknown driver should use global residuals")
	}
	if got := artifact.ResidualsFor("ALPHA", 5); !reflect.DeepEqual(got, artifact.DriverResiduals["ALPHA"]) {
		t.Fatal("known driver should use its own residuals")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	artifact := trainedArtifact(t, 6)

	data, err := artifact.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	restored, err := models.UnmarshalArtifact(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if restored.ModelVersion != artifact.ModelVersion {
		t.Fatalf("model version mismatch: %s vs %s", restored.ModelVersion, artifact.ModelVersion)
	}
	if !reflect.DeepEqual(restored.EncoderMappings, artifact.EncoderMappings) {
		t.Fatal("encoder mappings must round-trip exactly")
	}
	if !reflect.DeepEqual(restored.Ranker, artifact.Ranker) {
		t.Fatal("ranker params must round-trip exactly")
	}
	if !reflect.DeepEqual(restored.DriverResiduals, artifact.DriverResiduals) {
		t.Fatal("residual distributions must round-trip exactly")
	}
	if !restored.TrainingDataCutoff.Equal(artifact.TrainingDataCutoff) {
		t.Fatal("training cutoff must round-trip")
	}

	// Restored artifacts must predict identically
	vectors := []*models.FeatureVector{syntheticRows(1)[0].Features}
	if Predict(artifact, vectors)[0] != Predict(restored, vectors)[0] {
		t.Fatal("restored artifact diverged on prediction")
	}
}

func TestBlendWeightsStoredInArtifact(t *testing.T) {
	params := DefaultHyperParams()
	params.BlendWeightRank = 0.7
	params.BlendWeightReg = 0.3
	ens, err := New(params)
	if err != nil {
		t.Fatalf("failed to build ensemble: %v", err)
	}

	artifact, err := ens.Train(syntheticRows(6), TrainOptions{ModelVersion: "v-blend"})
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if artifact.BlendWeightRank != 0.7 || artifact.BlendWeightReg != 0.3 {
		t.Fatalf("blend weights should be fixed per artifact, got (%v, %v)",
			artifact.BlendWeightRank, artifact.BlendWeightReg)
	}
}
