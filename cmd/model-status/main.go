package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/explain"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/repository"
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
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(importanceCmd)
}

var rootCmd = &cobra.Command{
	Use:   "model-status",
	Short: "Inspect and manage trained model artifacts",
	Long:  `Displays trained model versions, their evaluation metrics and the currently served version.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		displayStatus()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model versions",
	Run: func(cmd *cobra.Command, args []string) {
		displayList()
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <name> <version>",
	Short: "Activate a specific model version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return activateVersion(args[0], args[1])
	},
}

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "Show feature importance of the active model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return displayImportance()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GRIDLINE")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setupDependencies() error {
	logger = logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
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

	fmt.Printf("\nmodel-status %s (%s, built %s)\n\n", Version, GitCommit, BuildDate)

	active, err := repos.Models.GetActive(ctx)
	if err != nil {
		fmt.Printf("Failed to query active models: %v\n", err)
		return
	}
	if len(active) == 0 {
		fmt.Println("No active model. Run the trainer to produce one.")
		return
	}

	for _, artifact := range active {
		fmt.Printf("Active model: %s %s\n", artifact.Name, artifact.Version)
		fmt.Printf("  ID:         %s\n", artifact.ID)
		fmt.Printf("  Algorithm:  %s\n", artifact.Algorithm)
		fmt.Printf("  Trained at: %s\n", artifact.TrainedAt.Format(time.RFC3339))
		fmt.Printf("  Blob:       %s\n", artifact.BlobPath)
		printMetrics(artifact.Metrics)
		fmt.Println()
	}
}

func displayList() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	artifacts, err := repos.Models.List(ctx, 20)
	if err != nil {
		fmt.Printf("Failed to list models: %v\n", err)
		return
	}

	fmt.Printf("%-20s %-20s %-20s %-8s %s\n", "Name", "Version", "Algorithm", "Active", "Trained")
	for _, a := range artifacts {
		active := ""
		if a.Active {
			active = "*"
		}
		fmt.Printf("%-20s %-20s %-20s %-8s %s\n",
			a.Name, a.Version, a.Algorithm, active, a.TrainedAt.Format("2006-01-02 15:04"))
	}
}

func activateVersion(name, version string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	artifact, err := repos.Models.GetByVersion(ctx, name, version)
	if err != nil {
		return fmt.Errorf("failed to find %s %s: %w", name, version, err)
	}
	if err := repos.Models.SetActive(ctx, artifact.ID); err != nil {
		return fmt.Errorf("failed to activate %s: %w", artifact.ID, err)
	}
	fmt.Printf("Activated %s %s (%s)\n", name, version, artifact.ID)
	return nil
}

func displayImportance() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active, err := repos.Models.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to query active models: %w", err)
	}
	if len(active) == 0 {
		return fmt.Errorf("no active model")
	}

	artifact := active[0]
	model, err := ml.Load(artifact.BlobPath, artifact.MetaPath)
	if err != nil {
		return fmt.Errorf("failed to load artifact %s: %w", artifact.ID, err)
	}

	weights, err := explain.GlobalImportance(model)
	if err != nil {
		return err
	}

	fmt.Printf("Feature importance for %s %s:\n", artifact.Name, artifact.Version)
	for _, w := range weights {
		fmt.Printf("  %-32s %.4f\n", w.Feature, w.Weight)
	}
	return nil
}

func printMetrics(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var metrics map[string]float64
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return
	}
	for name, value := range metrics {
		fmt.Printf("  %-11s %.4f\n", name+":", value)
	}
}
