package evaluation

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/ensemble"
	"github.com/yourusername/grid-oracle/internal/features"
	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/rating"
)

// Config controls the expanding-window walk-forward split
type Config struct {
	// MinTrainingRaces is the size of the first training window. It is
	// raised to the ensemble's own minimum when set lower.
	MinTrainingRaces int
	// MaxFolds caps the number of held-out races; 0 evaluates every
	// race after the first window.
	MaxFolds int
}

// Fold is the outcome of one held-out race
type Fold struct {
	Season        int         `json:"season"`
	Round         int         `json:"round"`
	Circuit       string      `json:"circuit"`
	TrainingRaces int         `json:"training_races"`
	Metrics       FoldMetrics `json:"metrics"`
}

// Result is the full walk-forward outcome
type Result struct {
	Folds      []Fold  `json:"folds"`
	Aggregated Metrics `json:"aggregated_metrics"`
	// ConsistencyScore is the fraction of folds where the predicted
	// order positively correlated with the actual finishing order.
	ConsistencyScore float64 `json:"consistency_score"`
}

// Evaluator replays history chronologically, training a fresh
// ensemble for every fold so no race ever informs its own prediction.
type Evaluator struct {
	hyper   ensemble.HyperParams
	driverK float64
	teamK   float64
	logger  *logrus.Logger
}

// NewEvaluator creates an evaluator, validating the hyperparameters
func NewEvaluator(hyper ensemble.HyperParams, driverK, teamK float64, log *logrus.Logger) (*Evaluator, error) {
	if err := hyper.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	return &Evaluator{hyper: hyper, driverK: driverK, teamK: teamK, logger: log}, nil
}

// Run walks the record sequence in calendar order. Each fold trains
// on every race before the held-out race and scores the predicted
// order against the actual result. records must already be sorted
// chronologically.
func (e *Evaluator) Run(ctx context.Context, records []*models.RaceRecord, cfg Config) (Result, error) {
	if cfg.MinTrainingRaces < e.hyper.MinRaces {
		cfg.MinTrainingRaces = e.hyper.MinRaces
	}
	if len(records) <= cfg.MinTrainingRaces {
		return Result{}, &models.InsufficientHistoryError{Races: len(records), Minimum: cfg.MinTrainingRaces + 1}
	}

	builder := features.NewBuilder()
	tracker := rating.NewTrackerWithK(e.driverK, e.teamK)
	var rows []ensemble.TrainingRow
	var folds []Fold

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		snapshot := tracker.Snapshot()

		if i >= cfg.MinTrainingRaces && (cfg.MaxFolds == 0 || len(folds) < cfg.MaxFolds) {
			fold, err := e.evaluateFold(record, records[:i], snapshot, builder, rows)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"season": record.Race.Season,
					"round":  record.Race.Round,
				}).WithError(err).Warn("Skipping evaluation fold")
			} else {
				folds = append(folds, fold)
			}
		}

		// Fold the held-out race into the training set for later folds
		for _, result := range record.Results {
			if result.Position == nil || *result.Position <= 0 {
				continue
			}
			vector, err := builder.Build(record.Race, result, record.Weather, snapshot, records[:i])
			if err != nil {
				continue
			}
			rows = append(rows, ensemble.TrainingRow{
				Features:  vector,
				Position:  float64(*result.Position),
				RaceGroup: record.Race.ID.String(),
			})
		}
		tracker.Update(finishingOrder(record.Results))
	}

	if len(folds) == 0 {
		return Result{}, fmt.Errorf("no evaluable races in history")
	}

	return Result{
		Folds:            folds,
		Aggregated:       aggregate(folds, records),
		ConsistencyScore: consistency(folds),
	}, nil
}

// evaluateFold trains on the accumulated rows and scores the held-out
// race. Only classified finishers enter the comparison; retirements
// have no rank to compare against.
func (e *Evaluator) evaluateFold(record *models.RaceRecord, history []*models.RaceRecord, snapshot *rating.Snapshot, builder *features.Builder, rows []ensemble.TrainingRow) (Fold, error) {
	ens, err := ensemble.New(e.hyper)
	if err != nil {
		return Fold{}, err
	}
	artifact, err := ens.Train(rows, ensemble.TrainOptions{ModelVersion: "walk-forward"})
	if err != nil {
		return Fold{}, err
	}

	var vectors []*models.FeatureVector
	var actual []float64
	for _, result := range record.Results {
		if result.Position == nil || *result.Position <= 0 {
			continue
		}
		vector, err := builder.Build(record.Race, result, record.Weather, snapshot, history)
		if err != nil {
			return Fold{}, err
		}
		vectors = append(vectors, vector)
		actual = append(actual, float64(*result.Position))
	}
	if len(vectors) < 2 {
		return Fold{}, fmt.Errorf("fewer than two classified finishers")
	}

	scores := ensemble.Predict(artifact, vectors)
	return Fold{
		Season:        record.Race.Season,
		Round:         record.Race.Round,
		Circuit:       record.Race.Circuit,
		TrainingRaces: artifact.TrainingRaces,
		Metrics:       calculateFold(scores, actual),
	}, nil
}

// finishingOrder extracts the classified order for a rating update
func finishingOrder(results []*models.DriverResult) []rating.RaceEntry {
	classified := make([]*models.DriverResult, 0, len(results))
	for _, r := range results {
		if r.Position != nil && *r.Position > 0 {
			classified = append(classified, r)
		}
	}
	sort.SliceStable(classified, func(i, j int) bool {
		return *classified[i].Position < *classified[j].Position
	})

	entries := make([]rating.RaceEntry, len(classified))
	for i, r := range classified {
		entries[i] = rating.RaceEntry{Driver: r.Driver, Team: r.Team}
	}
	return entries
}

func aggregate(folds []Fold, records []*models.RaceRecord) Metrics {
	metrics := Metrics{Races: len(folds)}
	if len(folds) == 0 {
		return metrics
	}

	winners := 0
	for _, f := range folds {
		metrics.Predictions += f.Metrics.Drivers
		if f.Metrics.WinnerHit {
			winners++
		}
		metrics.PodiumPrecision += f.Metrics.PodiumPrecision
		metrics.MeanAbsError += f.Metrics.MeanAbsError
		metrics.RankCorrelation += f.Metrics.RankCorrelation
	}
	n := float64(len(folds))
	metrics.WinnerHitRate = float64(winners) / n
	metrics.PodiumPrecision /= n
	metrics.MeanAbsError /= n
	metrics.RankCorrelation /= n

	if len(records) > 0 {
		metrics.StartDate = records[0].Race.ScheduledStart
		metrics.EndDate = records[len(records)-1].Race.ScheduledStart
	}
	return metrics
}

func consistency(folds []Fold) float64 {
	if len(folds) == 0 {
		return 0
	}
	positive := 0
	for _, f := range folds {
		if f.Metrics.RankCorrelation > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(folds))
}
