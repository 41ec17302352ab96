package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/repository"
	"github.com/noah-isme/perf-review-api/internal/service"
	"github.com/noah-isme/perf-review-api/pkg/config"
	"github.com/noah-isme/perf-review-api/pkg/database"
	"github.com/noah-isme/perf-review-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.Migrations); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	seeder := service.NewSeedService(
		database.NewTransactor(db),
		repository.NewReviewRepository(db),
		repository.NewStaffRepository(db),
		repository.NewTemplateRepository(db),
		logr,
	)
	seeded, err := seeder.Run(ctx)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	if !seeded {
		logr.Info("database already contains data, nothing to do")
	}
}
