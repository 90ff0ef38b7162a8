package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/database"
	"github.com/yourusername/grid-oracle/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logger     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "model-status",
	Short: "Check prediction model and pipeline status",
	Long:  `Displays the serving model version, artifact history and database health for the prediction pipeline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		displayStatus()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	logger = logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	var err error
	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return nil
}

func displayStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\n╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 Prediction Pipeline Status                     ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Print("Database: ")
	if err := db.HealthCheck(ctx); err != nil {
		fmt.Println("❌ UNAVAILABLE")
		fmt.Printf("   Error: %v\n", err)
	} else {
		fmt.Println("✓ ONLINE")
	}

	fmt.Println("\nServing Model:")
	artifact, err := repos.Artifact.GetLatest(ctx)
	if err != nil {
		fmt.Printf("  None promoted: %v\n", err)
	} else {
		fmt.Printf("  Version: %s\n", artifact.ModelVersion)
		fmt.Printf("  Trained At: %s\n", artifact.TrainedAt.Format(time.RFC3339))
		fmt.Printf("  Training Races: %d\n", artifact.TrainingRaces)
		fmt.Printf("  Data Cutoff: %s\n", artifact.TrainingDataCutoff.Format(time.RFC3339))
		fmt.Printf("  Features: %d\n", len(artifact.FeatureNames))
		fmt.Printf("  Blend Weights: rank=%.2f reg=%.2f\n", artifact.BlendWeightRank, artifact.BlendWeightReg)
		fmt.Printf("  Drivers With Residuals: %d\n", len(artifact.DriverResiduals))
		fmt.Printf("  Teams With Reliability: %d\n", len(artifact.TeamReliability))
	}

	fmt.Println("\nArtifact History:")
	versions, err := repos.Artifact.ListVersions(ctx, 10)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
	} else if len(versions) == 0 {
		fmt.Println("  No artifacts stored")
	} else {
		for _, v := range versions {
			fmt.Printf("  %s\n", v)
		}
	}

	fmt.Println("\nConfiguration:")
	fmt.Printf("  Environment: %s\n", cfg.App.Environment)
	fmt.Printf("  Simulation Trials: %d\n", cfg.Simulation.Trials)
	fmt.Printf("  Blend Weights: rank=%.2f reg=%.2f\n", cfg.Model.BlendWeightRank, cfg.Model.BlendWeightReg)
	fmt.Printf("  Minimum Training Races: %d\n", cfg.Model.MinRaces)
	fmt.Printf("  Retraining Schedule: %s (enabled: %v)\n", cfg.Scheduler.RetrainingSchedule, cfg.Scheduler.Enabled)
	fmt.Printf("  Prediction Cache TTL: %d seconds\n", cfg.Prediction.CacheTTLSeconds)

	fmt.Println()
}
