// Package main provides the entry point for the walk-forward model
// evaluation CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/ensemble"
	"github.com/yourusername/grid-oracle/internal/evaluation"
	"github.com/yourusername/grid-oracle/internal/logger"
	"github.com/yourusername/grid-oracle/internal/repository"
	"github.com/yourusername/grid-oracle/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		minTrain   = flag.Int("min-train", 0, "First training window size (default: model minimum)")
		maxFolds   = flag.Int("max-folds", 0, "Cap on evaluated races (0 = all)")
		asJSON     = flag.Bool("json", false, "Print aggregated metrics as JSON")
		timeout    = flag.Duration("timeout", time.Hour, "Evaluation timeout")
	)
	flag.Parse()

	cfg := loadConfig(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	svc, err := service.NewPredictorService(repos, cfg, log)
	if err != nil {
		log.Fatalf("Failed to build predictor service: %v", err)
	}

	records, err := svc.History(ctx)
	if err != nil {
		log.Fatalf("Failed to load race history: %v", err)
	}

	hyper := ensemble.HyperParams{
		LearningRate:    cfg.Model.LearningRate,
		Epochs:          cfg.Model.Epochs,
		BlendWeightRank: cfg.Model.BlendWeightRank,
		BlendWeightReg:  cfg.Model.BlendWeightReg,
		MinRaces:        cfg.Model.MinRaces,
	}
	evaluator, err := evaluation.NewEvaluator(hyper, cfg.Rating.DriverKFactor, cfg.Rating.TeamKFactor, log)
	if err != nil {
		log.Fatalf("Failed to build evaluator: %v", err)
	}

	result, err := evaluator.Run(ctx, records, evaluation.Config{
		MinTrainingRaces: *minTrain,
		MaxFolds:         *maxFolds,
	})
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	if *asJSON {
		fmt.Println(result.Aggregated.ToJSON())
		return
	}
	printResult(result)
}

func printResult(result evaluation.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEASON\tROUND\tCIRCUIT\tTRAIN RACES\tWINNER\tPODIUM\tMAE\tRANK CORR")
	for _, fold := range result.Folds {
		winner := "miss"
		if fold.Metrics.WinnerHit {
			winner = "hit"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%.2f\t%.2f\t%.3f\n",
			fold.Season, fold.Round, fold.Circuit, fold.TrainingRaces,
			winner, fold.Metrics.PodiumPrecision, fold.Metrics.MeanAbsError, fold.Metrics.RankCorrelation,
		)
	}
	w.Flush()

	agg := result.Aggregated
	fmt.Printf("\nAggregated over %d races (%d predictions):\n", agg.Races, agg.Predictions)
	fmt.Printf("  Winner Hit Rate:  %.1f%%\n", agg.WinnerHitRate*100)
	fmt.Printf("  Podium Precision: %.1f%%\n", agg.PodiumPrecision*100)
	fmt.Printf("  Mean Abs Error:   %.2f positions\n", agg.MeanAbsError)
	fmt.Printf("  Rank Correlation: %.3f\n", agg.RankCorrelation)
	fmt.Printf("  Consistency:      %.1f%%\n", result.ConsistencyScore*100)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
