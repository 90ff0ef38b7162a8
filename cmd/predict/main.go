// Package main provides the entry point for the race prediction CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/logger"
	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/repository"
	"github.com/yourusername/grid-oracle/internal/service"
	"github.com/yourusername/grid-oracle/internal/simulation"
)

func main() {
	var (
		configPath  = flag.String("config", "config/config.yaml", "Path to config file")
		raceID      = flag.String("race", "", "Race ID to predict")
		season      = flag.Int("season", 0, "Season of the race (with -round)")
		round       = flag.Int("round", 0, "Round of the race (with -season)")
		weather     = flag.String("weather", "", "Weather override: dry or wet (default: stored forecast)")
		projectGrid = flag.Bool("project-grid", false, "Project missing grid slots from blended Elo when qualifying has not run")
		timeout     = flag.Duration("timeout", 5*time.Minute, "Prediction timeout")
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

	id := resolveRace(ctx, repos, *raceID, *season, *round, log)

	results, err := svc.PredictRaceWithOptions(ctx, id, service.PredictOptions{
		Weather:     simulation.Weather(*weather),
		ProjectGrid: *projectGrid,
	})
	if err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}

	printPredictions(results)
}

func resolveRace(ctx context.Context, repos *repository.Repositories, raceID string, season, round int, log *logrus.Logger) uuid.UUID {
	if raceID != "" {
		id, err := uuid.Parse(raceID)
		if err != nil {
			log.Fatalf("Invalid race ID %q: %v", raceID, err)
		}
		return id
	}
	if season > 0 && round > 0 {
		race, err := repos.Race.GetBySeasonRound(ctx, season, round)
		if err != nil {
			log.Fatalf("Failed to find race for season %d round %d: %v", season, round, err)
		}
		return race.ID
	}
	log.Fatal("Either -race or both -season and -round are required")
	return uuid.Nil
}

func printPredictions(results []models.PredictionResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DRIVER\tTEAM\tGRID\tWIN\tPODIUM\tTOP10\tDNF\tAVG FINISH")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t%.2f\n",
			r.Driver, r.Team, r.GridPosition,
			r.WinProbability*100, r.PodiumProbability*100, r.Top10Probability*100,
			r.DNFProbability*100, r.AvgFinishPosition,
		)
	}
	w.Flush()

	if len(results) > 0 {
		fmt.Printf("\nModel %s, %d trials\n", results[0].ModelVersion, results[0].SimulationCount)
	}
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
