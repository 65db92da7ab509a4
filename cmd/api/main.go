package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/receiptwise/backend/api/controllers"
	"github.com/receiptwise/backend/api/routes"
	"github.com/receiptwise/backend/internal/categorize"
	"github.com/receiptwise/backend/internal/extraction"
	"github.com/receiptwise/backend/internal/history"
	"github.com/receiptwise/backend/internal/receipts"
	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/db"
	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/metrics"
	"github.com/receiptwise/backend/pkg/migrate"
	"github.com/receiptwise/backend/pkg/redis"
	"github.com/receiptwise/backend/pkg/storage/local"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{"database": dbClient}

	var rateLimiter *redis.Client
	if cfg.Redis.URL != "" {
		rateLimiter, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := rateLimiter.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers["redis"] = rateLimiter
	} else {
		logg.Warn(context.Background(), "redis url not set, upload rate limiting disabled")
	}

	imageStore, err := local.New(cfg.Upload.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare upload directory", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	modelClient, err := extraction.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		logg.Error(context.Background(), "failed to create vision client", err)
		os.Exit(1)
	}
	extractor, err := extraction.NewService(modelClient, cfg.OpenAI.RequestTimeout, pipelineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create extraction service", err)
		os.Exit(1)
	}

	classifier, err := categorize.NewOpenAIClassifier(cfg.OpenAI)
	if err != nil {
		logg.Error(context.Background(), "failed to create classifier", err)
		os.Exit(1)
	}
	categorizer, err := categorize.NewService(classifier, cfg.Options, pipelineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create categorization service", err)
		os.Exit(1)
	}

	historyService, err := history.NewService(history.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}

	receiptsService, err := receipts.NewService(
		receipts.NewRepository(dbClient.DB()),
		historyService,
		dbClient,
		receipts.NewValidator(cfg.Options),
		imageStore,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Receipts:    receiptsService,
		Extractor:   extractor,
		Categorizer: categorizer,
		Images:      imageStore,
		Metrics:     pipelineMetrics,
		Registry:    registry,
		Pingers:     pingers,
	}
	if rateLimiter != nil {
		deps.RateLimiter = rateLimiter
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
