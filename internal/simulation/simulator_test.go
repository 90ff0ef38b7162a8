package simulation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/models"
)

// fieldVectors builds a three-driver field where ALPHA carries the
// strongest rating and the best grid slot.
func fieldVectors() []*models.FeatureVector {
	drivers := []struct {
		name string
		team string
		elo  float64
	}{
		{"ALPHA", "T1", 1600},
		{"BRAVO", "T2", 1500},
		{"CHARLIE", "T3", 1400},
	}

	vectors := make([]*models.FeatureVector, len(drivers))
	for i, d := range drivers {
		vectors[i] = &models.FeatureVector{
			RaceID:          uuid.New(),
			DriverID:        uuid.New(),
			Driver:          d.name,
			Team:            d.team,
			DriverElo:       d.elo,
			TeamElo:         d.elo,
			OvertakingScore: 5,
			GridPosition:    i + 1,
			RecentForm:      float64(i + 1),
			Consistency:     2.5,
			TeamReliability: 1.0,
		}
	}
	return vectors
}

// linearArtifact predicts position purely from driver rating: the
// regressor scores elo 1600 as 4.0, 1500 as 5.0, 1400 as 6.0. The
// ranker path is silenced through a zero calibration slope.
func linearArtifact(residuals []float64) *models.TrainedModelArtifact {
	dims := len(models.FeatureNames())
	scaler := models.ScalerParams{Means: make([]float64, dims), Stds: make([]float64, dims)}
	for i := range scaler.Stds {
		scaler.Stds[i] = 1
	}

	regressor := models.LinearModelParams{Weights: make([]float64, dims), Bias: 20}
	regressor.Weights[0] = -0.01 // driver_elo

	driverResiduals := make(map[string][]float64)
	var global []float64
	for _, driver := range []string{"ALPHA", "BRAVO", "CHARLIE"} {
		driverResiduals[driver] = append([]float64(nil), residuals...)
		global = append(global, residuals...)
	}

	return &models.TrainedModelArtifact{
		ModelVersion:      "v-sim-test",
		FeatureNames:      models.FeatureNames(),
		Scaler:            scaler,
		Ranker:            models.LinearModelParams{Weights: make([]float64, dims)},
		Regressor:         regressor,
		RankerCalibration: models.CalibrationParams{Slope: 0, Intercept: 0},
		BlendWeightRank:   0,
		BlendWeightReg:    1,
		DriverResiduals:   driverResiduals,
		GlobalResiduals:   global,
	}
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Trials = 200
	cfg.IncidentProbability = 0
	return cfg
}

func newSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	sim, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("failed to build simulator: %v", err)
	}
	return sim
}

func TestSimulateNilArtifact(t *testing.T) {
	sim := newSimulator(t, quietConfig())
	_, _, err := sim.Simulate(context.Background(), uuid.New(), fieldVectors(), nil, WeatherDry)
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestSimulateEmptyField(t *testing.T) {
	sim := newSimulator(t, quietConfig())
	_, _, err := sim.Simulate(context.Background(), uuid.New(), nil, linearArtifact([]float64{0}), WeatherDry)
	if err == nil {
		t.Fatal("expected error for empty field")
	}
}

func TestZeroVarianceResidualsDegradeToDeterministic(t *testing.T) {
	sim := newSimulator(t, quietConfig())
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	results, diagnostics, err := sim.Simulate(context.Background(), uuid.New(), fieldVectors(), artifact, WeatherDry)
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}

	if diagnostics.DegradedTrials != diagnostics.Trials {
		t.Fatalf("flat residuals should degrade every trial, got %d of %d",
			diagnostics.DegradedTrials, diagnostics.Trials)
	}

	// Without noise the strongest driver wins every single trial
	wantOrder := []string{"ALPHA", "BRAVO", "CHARLIE"}
	for i, want := range wantOrder {
		if results[i].Driver != want {
			t.Fatalf("position %d: expected %s, got %s", i+1, want, results[i].Driver)
		}
		if results[i].AvgFinishPosition != float64(i+1) {
			t.Fatalf("%s should finish P%d in every trial, got avg %v", want, i+1, results[i].AvgFinishPosition)
		}
	}
	if results[0].WinProbability != 1.0 {
		t.Fatalf("dominant driver should win 100%%, got %v", results[0].WinProbability)
	}
	if results[1].WinProbability != 0 || results[2].WinProbability != 0 {
		t.Fatal("trailing drivers should never win in a zero-noise field")
	}
}

func TestSimulateDeterministic(t *testing.T) {
	cfg := quietConfig()
	cfg.IncidentProbability = 0.1
	sim := newSimulator(t, cfg)
	artifact := linearArtifact([]float64{-2, -1, 0, 1, 2})

	raceID := uuid.New()
	vectors := fieldVectors()

	first, _, err := sim.Simulate(context.Background(), raceID, vectors, artifact, WeatherWet)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, _, err := sim.Simulate(context.Background(), raceID, vectors, artifact, WeatherWet)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for i := range first {
		a, b := first[i], second[i]
		if a.Driver != b.Driver ||
			a.WinProbability != b.WinProbability ||
			a.PodiumProbability != b.PodiumProbability ||
			a.Top10Probability != b.Top10Probability ||
			a.DNFProbability != b.DNFProbability ||
			a.AvgFinishPosition != b.AvgFinishPosition {
			t.Fatalf("runs with the same seed diverged at index %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestProbabilityConsistency(t *testing.T) {
	sim := newSimulator(t, quietConfig())
	artifact := linearArtifact([]float64{-2, -1, 0, 1, 2})

	results, _, err := sim.Simulate(context.Background(), uuid.New(), fieldVectors(), artifact, WeatherDry)
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}

	var winSum float64
	for _, r := range results {
		winSum += r.WinProbability
		if r.WinProbability > r.PodiumProbability {
			t.Fatalf("%s: win %v exceeds podium %v", r.Driver, r.WinProbability, r.PodiumProbability)
		}
		if r.PodiumProbability > r.Top10Probability {
			t.Fatalf("%s: podium %v exceeds top10 %v", r.Driver, r.PodiumProbability, r.Top10Probability)
		}
		if r.DNFProbability != 0 {
			t.Fatalf("%s: fully reliable team should never retire, got %v", r.Driver, r.DNFProbability)
		}
		if r.SimulationCount != sim.config.Trials {
			t.Fatalf("%s: expected %d trials recorded, got %d", r.Driver, sim.config.Trials, r.SimulationCount)
		}
		if r.ModelVersion != artifact.ModelVersion {
			t.Fatalf("%s: model version not carried into prediction", r.Driver)
		}
	}
	// Every trial finishes with exactly one winner
	if math.Abs(winSum-1.0) > 1e-9 {
		t.Fatalf("win probabilities should sum to 1, got %v", winSum)
	}
}

func TestUnreliableTeamAlwaysRetires(t *testing.T) {
	cfg := quietConfig()
	cfg.DNFCap = 1.0
	sim := newSimulator(t, cfg)

	vectors := fieldVectors()
	for _, v := range vectors {
		v.TeamReliability = 0
	}
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	results, diagnostics, err := sim.Simulate(context.Background(), uuid.New(), vectors, artifact, WeatherDry)
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}

	if diagnostics.AllDNFTrials != diagnostics.Trials {
		t.Fatalf("expected every trial to end with no finishers, got %d of %d",
			diagnostics.AllDNFTrials, diagnostics.Trials)
	}
	for _, r := range results {
		if r.DNFProbability != 1.0 {
			t.Fatalf("%s: expected certain retirement, got %v", r.Driver, r.DNFProbability)
		}
		if r.WinProbability != 0 {
			t.Fatalf("%s: a retired driver cannot win, got %v", r.Driver, r.WinProbability)
		}
		if r.AvgFinishPosition != float64(len(vectors)) {
			t.Fatalf("%s: never-finishing driver should default to field size, got %v", r.Driver, r.AvgFinishPosition)
		}
	}
}

func TestWetWeatherRaisesDNFRate(t *testing.T) {
	cfg := quietConfig()
	cfg.Trials = 5000
	cfg.DNFCap = 1.0
	sim := newSimulator(t, cfg)

	vectors := fieldVectors()
	for _, v := range vectors {
		v.TeamReliability = 0.8
	}
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	dry, _, err := sim.Simulate(context.Background(), uuid.New(), vectors, artifact, WeatherDry)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	wet, _, err := sim.Simulate(context.Background(), uuid.New(), vectors, artifact, WeatherWet)
	if err != nil {
		t.Fatalf("wet run failed: %v", err)
	}

	// Hazard 0.2 dry vs 0.3 wet; 5000 trials keeps the sampling error
	// far below the 0.1 gap.
	for i := range dry {
		if wet[i].DNFProbability <= dry[i].DNFProbability {
			t.Fatalf("wet DNF rate should exceed dry: %v vs %v", wet[i].DNFProbability, dry[i].DNFProbability)
		}
	}
}

func TestIncidentRateScalesWithOvertaking(t *testing.T) {
	cfg := quietConfig()
	cfg.Trials = 5000
	cfg.IncidentProbability = 0.3
	sim := newSimulator(t, cfg)
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	rateAt := func(overtaking float64) float64 {
		vectors := fieldVectors()
		for _, v := range vectors {
			v.OvertakingScore = overtaking
		}
		_, diagnostics, err := sim.Simulate(context.Background(), uuid.New(), vectors, artifact, WeatherDry)
		if err != nil {
			t.Fatalf("simulation failed at overtaking %v: %v", overtaking, err)
		}
		return float64(diagnostics.IncidentTrials) / float64(diagnostics.Trials)
	}

	narrow := rateAt(1) // chaos 0.6, effective hazard 0.18
	open := rateAt(9)   // chaos 1.4, effective hazard 0.42

	if open <= narrow {
		t.Fatalf("overtaking-friendly circuit should see more incidents: %v vs %v", open, narrow)
	}
	if math.Abs(narrow-0.18) > 0.03 {
		t.Fatalf("street-circuit incident rate should sit near 0.18, got %v", narrow)
	}
	if math.Abs(open-0.42) > 0.03 {
		t.Fatalf("open-circuit incident rate should sit near 0.42, got %v", open)
	}
}

func TestWetWeatherRaisesIncidentRate(t *testing.T) {
	cfg := quietConfig()
	cfg.Trials = 5000
	cfg.IncidentProbability = 0.3
	sim := newSimulator(t, cfg)
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	raceID := uuid.New()
	_, dry, err := sim.Simulate(context.Background(), raceID, fieldVectors(), artifact, WeatherDry)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	_, wet, err := sim.Simulate(context.Background(), raceID, fieldVectors(), artifact, WeatherWet)
	if err != nil {
		t.Fatalf("wet run failed: %v", err)
	}

	// Overtaking 5 leaves the dry hazard at the base 0.3; the wet
	// noise multiplier lifts it to 0.45. Both runs draw the same
	// per-trial uniforms, so the wet count strictly dominates.
	if wet.IncidentTrials <= dry.IncidentTrials {
		t.Fatalf("wet running should produce more incidents: %d vs %d", wet.IncidentTrials, dry.IncidentTrials)
	}
}

func TestIncidentHazardClampsAtCertainty(t *testing.T) {
	cfg := quietConfig()
	cfg.Trials = 500
	cfg.IncidentProbability = 0.9
	sim := newSimulator(t, cfg)
	artifact := linearArtifact([]float64{0, 0, 0, 0, 0})

	// 0.9 * chaos 1.4 * wet 1.5 overshoots certainty and must clamp
	vectors := fieldVectors()
	for _, v := range vectors {
		v.OvertakingScore = 9
	}
	_, diagnostics, err := sim.Simulate(context.Background(), uuid.New(), vectors, artifact, WeatherWet)
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}
	if diagnostics.IncidentTrials != diagnostics.Trials {
		t.Fatalf("saturated hazard should reshuffle every trial, got %d of %d",
			diagnostics.IncidentTrials, diagnostics.Trials)
	}
}

func TestSimulateCancelledContext(t *testing.T) {
	cfg := quietConfig()
	cfg.Trials = 100000
	sim := newSimulator(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := sim.Simulate(ctx, uuid.New(), fieldVectors(), linearArtifact([]float64{-1, 0, 1, 2, 3}), WeatherDry)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"incident probability above one", func(c *Config) { c.IncidentProbability = 1.5 }},
		{"incident cap below two", func(c *Config) { c.IncidentMaxDrivers = 1 }},
		{"wet multiplier below one", func(c *Config) { c.WetNoiseMultiplier = 0.5 }},
		{"dnf floor above cap", func(c *Config) { c.DNFFloor = 0.5; c.DNFCap = 0.2 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
