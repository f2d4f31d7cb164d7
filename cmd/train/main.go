// Package main provides the entry point for the model training CLI.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/repository"
	"github.com/yourusername/gridline/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		seasons    = flag.String("seasons", "", "Override training seasons (comma-separated years)")
		cvOnly     = flag.Bool("cv-only", false, "Run cross-validation without persisting artifacts")
	)
	flag.Parse()

	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel)
	ctx := context.Background()

	if *seasons != "" {
		years, err := parseSeasons(*seasons)
		if err != nil {
			log.Fatalf("Invalid seasons flag: %v", err)
		}
		cfg.Training.Seasons = years
	}
	if *cvOnly {
		// Artifacts still train in memory; the activation floor set to
		// an impossible value keeps every version inactive.
		cfg.Training.MinSpearman = 2.0
	}

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	plog := logger.NewPipelineLogger(log)
	assembler := service.NewDatasetAssembler(repos, plog)
	registry := ml.NewRegistry(30 * time.Minute)
	trainer := service.NewTrainer(cfg, repos, assembler, registry, plog)

	started := time.Now()
	report, err := trainer.Run(ctx)
	if err != nil {
		log.Fatalf("Training run failed: %v", err)
	}

	fields := logrus.Fields{
		"version":     report.Version,
		"rows":        report.Rows,
		"train_rows":  report.TrainRows,
		"test_rows":   report.TestRows,
		"cv_spearman": report.CVSpearman,
		"duration":    time.Since(started).String(),
	}
	for alg, summary := range report.Summaries {
		fields[string(alg)+"_spearman"] = summary.Spearman
		fields[string(alg)+"_mae"] = summary.MAE
		fields[string(alg)+"_top10"] = summary.Top10HitRate
	}
	log.WithFields(fields).Info("Training run completed")

	if report.ActiveID == "" {
		log.Warn("No model met the activation floor; serving version unchanged")
	} else {
		log.WithField("active_id", report.ActiveID).Info("Activated new model version")
	}
}

func loadConfigWithSecrets(path string) *config.Config {
	boot := logrus.New()
	cfg, err := config.Load(path)
	if err != nil {
		boot.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			boot.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			boot.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		boot.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func parseSeasons(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		year, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	return years, nil
}
