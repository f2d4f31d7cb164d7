// Package main provides the entry point for the race prediction CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/cache"
	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/models"
	"github.com/yourusername/gridline/internal/repository"
	"github.com/yourusername/gridline/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		raceID     = flag.String("race", "", "Race ID to predict (uuid)")
		year       = flag.Int("year", 0, "Predict every race of a season instead of a single race")
		explain    = flag.Bool("explain", false, "Print global feature importance of the active model")
	)
	flag.Parse()

	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel)
	ctx := context.Background()

	if *raceID == "" && *year == 0 && !*explain {
		log.Fatal("Either -race, -year or -explain is required")
	}

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	plog := logger.NewPipelineLogger(log)
	assembler := service.NewDatasetAssembler(repos, plog)
	registry := ml.NewRegistry(30 * time.Minute)

	var predCache *cache.PredictionCache
	if cfg.Redis.Enabled {
		predCache, err = cache.NewPredictionCache(cfg.Redis, log)
		if err != nil {
			log.WithError(err).Warn("Prediction cache unavailable, continuing without it")
			predCache = nil
		} else {
			defer predCache.Close()
		}
	}

	predictor := service.NewPredictor(cfg, repos, assembler, registry, predCache, plog)

	if *explain {
		printImportance(ctx, predictor, log)
		return
	}

	races := targetRaces(ctx, repos, log, *raceID, *year)
	for _, id := range races {
		preds, err := predictor.PredictRace(ctx, id)
		if err != nil {
			log.WithError(err).WithField("race_id", id).Error("Prediction failed")
			continue
		}
		printPredictions(id, preds)
	}
}

func targetRaces(ctx context.Context, repos *repository.Repositories, log *logrus.Logger, raceID string, year int) []uuid.UUID {
	if raceID != "" {
		id, err := uuid.Parse(raceID)
		if err != nil {
			log.Fatalf("Invalid race id %q: %v", raceID, err)
		}
		return []uuid.UUID{id}
	}

	races, err := repos.Races.GetBySeason(ctx, year)
	if err != nil {
		log.Fatalf("Failed to list races for %d: %v", year, err)
	}
	if len(races) == 0 {
		log.Fatalf("No ingested races found for season %d", year)
	}
	ids := make([]uuid.UUID, len(races))
	for i, race := range races {
		ids[i] = race.ID
	}
	return ids
}

func printPredictions(raceID uuid.UUID, preds []*models.Prediction) {
	if len(preds) == 0 {
		return
	}
	sorted := make([]*models.Prediction, len(preds))
	copy(sorted, preds)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].PredictedPosition < sorted[b].PredictedPosition
	})

	fmt.Printf("\nRace %s (model %s)\n", raceID, sorted[0].ModelType)
	fmt.Printf("%-6s %-8s %-10s %-8s %-8s\n", "Rank", "Driver", "Predicted", "Top10", "Conf")
	for i, p := range sorted {
		top10 := ""
		if p.Top10Probability != nil {
			top10 = fmt.Sprintf("%.1f%%", *p.Top10Probability*100)
		}
		fmt.Printf("%-6d #%-7d %-10.2f %-8s %-8.2f\n",
			i+1, p.DriverNumber, p.PredictedPosition, top10, p.Confidence)
	}
}

func printImportance(ctx context.Context, predictor *service.Predictor, log *logrus.Logger) {
	weights, err := predictor.ExplainActive(ctx)
	if err != nil {
		log.Fatalf("Failed to explain active model: %v", err)
	}
	fmt.Printf("%-32s %s\n", "Feature", "Importance")
	for _, w := range weights {
		fmt.Printf("%-32s %.4f\n", w.Feature, w.Weight)
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
