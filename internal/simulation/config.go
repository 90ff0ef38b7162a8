// Package simulation runs Monte Carlo race trials over blended
// ensemble scores and aggregates them into per-driver outcome
// probabilities.
package simulation

import "fmt"

// Weather is the pre-race forecast fed into a simulation run
type Weather string

const (
	WeatherDry Weather = "dry"
	WeatherWet Weather = "wet"
)

// Config enumerates every recognized simulation option
type Config struct {
	// Trials is the number of independent Monte Carlo trials.
	// Valid [1, 1000000]; 5000-10000 stays inside interactive
	// latency budgets.
	Trials int
	// BaseSeed anchors per-trial seeds: trial t uses BaseSeed + t,
	// so runs are reproducible regardless of worker scheduling.
	BaseSeed int64
	// Workers sizes the trial worker pool. 0 means GOMAXPROCS.
	Workers int
	// IncidentProbability is the per-trial chance of a first-lap
	// incident reshuffle, before chaos scaling. Valid [0, 1].
	IncidentProbability float64
	// IncidentMaxDrivers caps how many drivers an incident can
	// reshuffle. Valid >= 2.
	IncidentMaxDrivers int
	// WetNoiseMultiplier widens sampled residual noise in wet
	// weather. Valid >= 1.
	WetNoiseMultiplier float64
	// WetDNFMultiplier raises the DNF hazard in wet weather.
	// Valid >= 1.
	WetDNFMultiplier float64
	// MinResidualSamples is the history floor below which a driver
	// samples from the global residual pool instead of its own.
	MinResidualSamples int
	// DNFFloor and DNFCap clamp the per-driver DNF probability.
	DNFFloor float64
	DNFCap   float64
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Trials:              5000,
		BaseSeed:            1,
		Workers:             0,
		IncidentProbability: 0.05,
		IncidentMaxDrivers:  6,
		WetNoiseMultiplier:  1.5,
		WetDNFMultiplier:    1.5,
		MinResidualSamples:  5,
		DNFFloor:            0.0,
		DNFCap:              0.35,
	}
}

// Validate checks every option against its valid range
func (c Config) Validate() error {
	if c.Trials < 1 || c.Trials > 1000000 {
		return fmt.Errorf("trials must be in [1, 1000000], got %d", c.Trials)
	}
	if c.IncidentProbability < 0 || c.IncidentProbability > 1 {
		return fmt.Errorf("incident probability must be in [0, 1], got %v", c.IncidentProbability)
	}
	if c.IncidentMaxDrivers < 2 {
		return fmt.Errorf("incident max drivers must be >= 2, got %d", c.IncidentMaxDrivers)
	}
	if c.WetNoiseMultiplier < 1 || c.WetDNFMultiplier < 1 {
		return fmt.Errorf("wet multipliers must be >= 1, got (%v, %v)", c.WetNoiseMultiplier, c.WetDNFMultiplier)
	}
	if c.MinResidualSamples < 1 {
		return fmt.Errorf("min residual samples must be >= 1, got %d", c.MinResidualSamples)
	}
	if c.DNFFloor < 0 || c.DNFCap > 1 || c.DNFFloor > c.DNFCap {
		return fmt.Errorf("dnf bounds must satisfy 0 <= floor <= cap <= 1, got (%v, %v)", c.DNFFloor, c.DNFCap)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}
