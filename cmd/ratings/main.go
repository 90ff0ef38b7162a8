// Package main provides the entry point for the rating inspection CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/logger"
	"github.com/yourusername/grid-oracle/internal/repository"
	"github.com/yourusername/grid-oracle/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		updateRace = flag.String("update", "", "Fold a finished race ID into the ratings before printing")
		top        = flag.Int("top", 20, "Number of entries to print per pool")
		timeout    = flag.Duration("timeout", 5*time.Minute, "Timeout")
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

	if *updateRace != "" {
		id, err := uuid.Parse(*updateRace)
		if err != nil {
			log.Fatalf("Invalid race ID %q: %v", *updateRace, err)
		}
		if err := svc.UpdateRatings(ctx, id); err != nil {
			log.Fatalf("Failed to update ratings: %v", err)
		}
	}

	snapshot, err := svc.Ratings(ctx)
	if err != nil {
		log.Fatalf("Failed to load ratings: %v", err)
	}

	printPool("DRIVER", snapshot.Drivers(), *top)
	fmt.Println()
	printPool("TEAM", snapshot.Teams(), *top)
}

func printPool(label string, pool map[string]float64, top int) {
	type entry struct {
		name   string
		rating float64
	}
	entries := make([]entry, 0, len(pool))
	for name, r := range pool {
		entries = append(entries, entry{name, r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rating != entries[j].rating {
			return entries[i].rating > entries[j].rating
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > top {
		entries = entries[:top]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "#\t%s\tRATING\n", label)
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%.1f\n", i+1, e.name, e.rating)
	}
	w.Flush()
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
