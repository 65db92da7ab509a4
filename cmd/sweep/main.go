package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/receiptwise/backend/internal/receipts"
	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/db"
	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/storage/local"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep",
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

	imageStore, err := local.New(cfg.Upload.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to open upload directory", err)
		os.Exit(1)
	}

	job, err := receipts.NewSweepJob(receipts.SweepJobParams{
		Logger: logg,
		DB:     dbClient,
		Repo:   receipts.NewRepository(dbClient.DB()),
		Images: imageStore,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	ctx := logg.WithField(context.Background(), "job", job.Name())
	logg.Info(ctx, "starting receipt image sweep")

	if err := job.Run(ctx); err != nil {
		logg.Error(ctx, "sweep finished with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sweep completed")
}
