package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/ensemble"
	"github.com/yourusername/grid-oracle/internal/models"
)

// dnfRank marks a retirement in a trial's finishing order. It sorts
// below every numeric position; a DNF driver never holds a finishing
// position.
const dnfRank = 0

// Simulator runs Monte Carlo race trials. Trials are pure functions
// of (base scores, per-trial seed): no trial mutates the artifact,
// the feature rows or any shared state, which is what makes the pool
// embarrassingly parallel and the output reproducible.
type Simulator struct {
	config Config
	logger *logrus.Logger
}

// New creates a simulator with a validated configuration
func New(config Config, logger *logrus.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{config: config, logger: logger}, nil
}

// driverState is the read-only per-driver setup shared by all trials
type driverState struct {
	baseScore float64
	residuals []float64
	degraded  bool // empty or zero-variance residual distribution
	noiseGain float64
	dnfProb   float64
}

// trialOutcome is one trial's finishing order: position per driver,
// dnfRank for retirements.
type trialOutcome struct {
	positions []int
	degraded  bool
	incident  bool
}

// Simulate runs the configured number of independent trials for one
// race and aggregates them into per-driver probabilities, ordered by
// win probability.
//
// Artifact loading and feature building happen before this call; the
// hot loop performs no I/O.
func (s *Simulator) Simulate(ctx context.Context, raceID uuid.UUID, vectors []*models.FeatureVector, artifact *models.TrainedModelArtifact, weather Weather) ([]models.PredictionResult, models.SimulationDiagnostics, error) {
	if len(vectors) == 0 {
		return nil, models.SimulationDiagnostics{}, fmt.Errorf("no feature rows for race %s", raceID)
	}
	if artifact == nil {
		return nil, models.SimulationDiagnostics{}, models.ErrModelNotTrained
	}

	start := time.Now()
	states, incidentProb := s.prepare(vectors, artifact, weather)

	outcomes := make([]trialOutcome, s.config.Trials)
	trialCh := make(chan int)
	workers := s.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range trialCh {
				outcomes[t] = s.runTrial(states, incidentProb, int64(t))
			}
		}()
	}

	var ctxErr error
feed:
	for t := 0; t < s.config.Trials; t++ {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case trialCh <- t:
		}
	}
	close(trialCh)
	wg.Wait()

	if ctxErr != nil {
		return nil, models.SimulationDiagnostics{}, fmt.Errorf("simulation cancelled: %w", ctxErr)
	}

	results, diagnostics := aggregate(raceID, vectors, outcomes, artifact.ModelVersion)
	diagnostics.Duration = time.Since(start)

	s.logger.WithFields(logrus.Fields{
		"race_id":         raceID,
		"trials":          s.config.Trials,
		"drivers":         len(vectors),
		"weather":         weather,
		"degraded_trials": diagnostics.DegradedTrials,
		"incident_trials": diagnostics.IncidentTrials,
		"duration":        diagnostics.Duration,
	}).Info("Simulation run completed")

	return results, diagnostics, nil
}

// prepare computes the immutable per-driver state once, amortized
// across all trials, plus the race-level incident probability.
func (s *Simulator) prepare(vectors []*models.FeatureVector, artifact *models.TrainedModelArtifact, weather Weather) ([]driverState, float64) {
	baseScores := ensemble.Predict(artifact, vectors)

	noiseMult := 1.0
	dnfMult := 1.0
	if weather == WeatherWet {
		noiseMult = s.config.WetNoiseMultiplier
		dnfMult = s.config.WetDNFMultiplier
	}

	// The overtaking score is circuit-level, identical across the
	// field. The same chaos term that widens per-driver noise scales
	// the start-lap incident hazard: overtaking-friendly circuits and
	// rain both produce messier opening laps.
	raceChaos := (0.5 + vectors[0].OvertakingScore/10.0) * noiseMult
	incidentProb := clamp(s.config.IncidentProbability*raceChaos, 0, 1)

	states := make([]driverState, len(vectors))
	for i, v := range vectors {
		residuals := artifact.ResidualsFor(v.Driver, s.config.MinResidualSamples)

		// Chaotic circuits and erratic drivers widen the noise
		chaos := 0.5 + v.OvertakingScore/10.0
		consistency := clamp(v.Consistency/2.5, 0.5, 1.5)

		dnfProb := (1.0 - v.TeamReliability) * dnfMult
		dnfProb = clamp(dnfProb, s.config.DNFFloor, s.config.DNFCap)

		states[i] = driverState{
			baseScore: baseScores[i],
			residuals: residuals,
			degraded:  zeroVariance(residuals),
			noiseGain: chaos * consistency * noiseMult,
			dnfProb:   dnfProb,
		}
	}
	return states, incidentProb
}

// runTrial executes one independent trial. The seed is derived from
// the trial index alone, so identical inputs always reproduce the
// identical finishing order.
func (s *Simulator) runTrial(states []driverState, incidentProb float64, trial int64) trialOutcome {
	rng := rand.New(rand.NewSource(s.config.BaseSeed + trial))
	n := len(states)

	scores := make([]float64, n)
	degraded := false
	for i, st := range states {
		if st.degraded {
			// Malformed residual distribution: fall back to a
			// zero-noise deterministic draw instead of aborting.
			scores[i] = st.baseScore
			degraded = true
			continue
		}
		residual := st.residuals[rng.Intn(len(st.residuals))]
		scores[i] = st.baseScore + residual*st.noiseGain
	}

	// First-lap incident: a random subset of the field swaps
	// perturbed scores, modeling chaotic start-lap position changes.
	incident := rng.Float64() < incidentProb
	if incident {
		s.shuffleSubset(rng, scores)
	}

	dnf := make([]bool, n)
	for i, st := range states {
		dnf[i] = rng.Float64() < st.dnfProb
	}

	// Rank non-DNF drivers by perturbed score ascending; ties break
	// by field index so the order is total and reproducible.
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !dnf[i] {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] < scores[order[b]]
		}
		return order[a] < order[b]
	})

	positions := make([]int, n)
	for rank, idx := range order {
		positions[idx] = rank + 1
	}
	return trialOutcome{positions: positions, degraded: degraded, incident: incident}
}

// shuffleSubset permutes the scores of a random subset of drivers
func (s *Simulator) shuffleSubset(rng *rand.Rand, scores []float64) {
	max := s.config.IncidentMaxDrivers
	if max > len(scores) {
		max = len(scores)
	}
	if max < 2 {
		return
	}
	count := 2 + rng.Intn(max-1)
	if count > max {
		count = max
	}

	involved := rng.Perm(len(scores))[:count]
	swapped := make([]float64, count)
	for i, idx := range involved {
		swapped[i] = scores[idx]
	}
	rng.Shuffle(count, func(a, b int) {
		swapped[a], swapped[b] = swapped[b], swapped[a]
	})
	for i, idx := range involved {
		scores[idx] = swapped[i]
	}
}

func zeroVariance(residuals []float64) bool {
	if len(residuals) == 0 {
		return true
	}
	first := residuals[0]
	for _, r := range residuals[1:] {
		if r != first {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
