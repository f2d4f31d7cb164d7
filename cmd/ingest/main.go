// Package main provides the entry point for the data ingestion service.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/cache"
	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/datasource"
	"github.com/yourusername/gridline/internal/health"
	"github.com/yourusername/gridline/internal/logger"
	"github.com/yourusername/gridline/internal/metrics"
	"github.com/yourusername/gridline/internal/ml"
	"github.com/yourusername/gridline/internal/repository"
	"github.com/yourusername/gridline/internal/scheduler"
	"github.com/yourusername/gridline/internal/service"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		year       = flag.Int("year", 0, "Ingest a single season and exit")
		daemon     = flag.Bool("daemon", false, "Run the scheduler and health server")
	)
	flag.Parse()

	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel)
	ctx := context.Background()

	if *year == 0 && !*daemon {
		log.Fatal("Either -year or -daemon is required")
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
	source := datasource.NewTimingAPIClient(cfg.DataSource, stdlog.New(log.Writer(), "", 0))
	defer source.Close()

	normalizer := service.NewDataNormalizer(log)
	ingestion := service.NewIngestionService(source, repos, normalizer, plog)

	if *year != 0 {
		started := time.Now()
		if err := ingestion.IngestSeason(ctx, *year); err != nil {
			log.Fatalf("Season ingestion failed: %v", err)
		}
		log.WithFields(logrus.Fields{
			"year":     *year,
			"duration": time.Since(started).String(),
		}).Info("Season ingestion completed")
		if !*daemon {
			return
		}
	}

	runDaemon(ctx, cfg, log, repos, ingestion, plog, db)
}

func runDaemon(ctx context.Context, cfg *config.Config, log *logrus.Logger, repos *repository.Repositories, ingestion *service.IngestionService, plog *logger.PipelineLogger, db *database.DB) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	assembler := service.NewDatasetAssembler(repos, plog)
	registry := ml.NewRegistry(30 * time.Minute)
	trainer := service.NewTrainer(cfg, repos, assembler, registry, plog)

	var predCache *cache.PredictionCache
	if cfg.Redis.Enabled {
		var err error
		predCache, err = cache.NewPredictionCache(cfg.Redis, log)
		if err != nil {
			log.WithError(err).Warn("Prediction cache unavailable, continuing without it")
			predCache = nil
		} else {
			defer predCache.Close()
		}
	}
	predictor := service.NewPredictor(cfg, repos, assembler, registry, predCache, plog)

	sched := scheduler.NewScheduler(ingestion, trainer, log)
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.SyncCron != "" {
			if err := sched.ScheduleSeasonSync(cfg.Scheduler.SyncCron, cfg.Training.Seasons); err != nil {
				log.Fatalf("Failed to schedule season sync: %v", err)
			}
		}
		if err := sched.ScheduleRetraining(cfg.Scheduler.RetrainCron); err != nil {
			log.Fatalf("Failed to schedule retraining: %v", err)
		}
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		log.WithField("next_run", sched.GetNextRun()).Info("Scheduler started")
	}

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Logger:      log,
		DB:          db,
		Models:      predictor,
	}
	if cfg.Metrics.Enabled {
		healthCfg.Metrics = metrics.Handler()
		if cfg.Metrics.Port != 0 {
			healthCfg.Port = fmt.Sprintf("%d", cfg.Metrics.Port)
		}
	}
	healthSrv := health.NewServer(healthCfg)
	if err := healthSrv.Start(ctx); err != nil {
		log.Fatalf("Failed to start health server: %v", err)
	}
	healthSrv.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("Shutting down")

	healthSrv.SetReady(false)
	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.WithError(err).Warn("Scheduler shutdown incomplete")
		}
	}
	if err := healthSrv.Shutdown(); err != nil {
		log.WithError(err).Warn("Health server shutdown incomplete")
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
