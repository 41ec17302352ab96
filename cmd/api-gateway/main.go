package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/perf-review-api/api/swagger"
	"github.com/noah-isme/perf-review-api/internal/handler"
	"github.com/noah-isme/perf-review-api/internal/repository"
	"github.com/noah-isme/perf-review-api/internal/service"
	"github.com/noah-isme/perf-review-api/pkg/cache"
	"github.com/noah-isme/perf-review-api/pkg/config"
	"github.com/noah-isme/perf-review-api/pkg/database"
	"github.com/noah-isme/perf-review-api/pkg/jobs"
	"github.com/noah-isme/perf-review-api/pkg/logger"
	"github.com/noah-isme/perf-review-api/pkg/mailer"
	"github.com/noah-isme/perf-review-api/pkg/storage"
)

// @title Performance Review API
// @version 1.0.0
// @description Staff, review templates and performance reviews with per-role answers.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, database.Migrations); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	app, err := buildApp(ctx, cfg, db, logr)
	if err != nil {
		logr.Fatal("failed to wire application", zap.Error(err))
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	db        *sqlx.DB
	metrics   *service.MetricsService
	tokens    *service.TokenService
	staff     *handler.StaffHandler
	templates *handler.TemplateHandler
	reviews   *handler.ReviewHandler
	dashboard *handler.DashboardHandler
	exports   *handler.ExportHandler
	ops       *handler.MetricsHandler

	queues []*jobs.Queue
	redis  *redis.Client
}

func (a *application) shutdown() {
	for _, q := range a.queues {
		q.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (*application, error) {
	app := &application{db: db}
	validate := validator.New()
	metrics := service.NewMetricsService()
	app.metrics = metrics

	staffRepo := repository.NewStaffRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	tx := database.NewTransactor(db)

	var cacheRepo service.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			app.redis = client
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)
	dashboardSvc := service.NewDashboardService(reviewRepo, cacheSvc, service.DashboardServiceConfig{
		CacheTTL:    cfg.Dashboard.CacheTTL,
		LatestLimit: cfg.Dashboard.LatestLimit,
	}, logr)

	staffSvc := service.NewStaffService(staffRepo, tx, dashboardSvc, validate, logr)
	templateSvc := service.NewTemplateService(templateRepo, dashboardSvc, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, templateRepo, staffRepo, answerRepo, dashboardSvc, validate, logr)
	evaluator := service.NewCompletionEvaluator(reviewRepo, templateRepo, answerRepo, metrics, logr)

	params := service.AnswerServiceParams{
		Tx:        tx,
		Reviews:   reviewRepo,
		Questions: templateRepo,
		Answers:   answerRepo,
		Evaluator: evaluator,
		Dashboard: dashboardSvc,
		Metrics:   metrics,
		Logger:    logr,
	}
	if cfg.Notifications.Enabled {
		notifier, queue, err := buildNotifications(ctx, cfg, reviewRepo, staffRepo, metrics, logr)
		if err != nil {
			logr.Warn("notifications disabled", zap.Error(err))
		} else {
			params.Notifier = notifier
			app.queues = append(app.queues, queue)
		}
	}
	answerSvc := service.NewAnswerService(params)

	app.staff = handler.NewStaffHandler(staffSvc)
	app.templates = handler.NewTemplateHandler(templateSvc)
	app.reviews = handler.NewReviewHandler(reviewSvc, answerSvc)
	app.dashboard = handler.NewDashboardHandler(dashboardSvc)
	app.ops = handler.NewMetricsHandler(metrics, db)
	app.exports = handler.NewExportHandler(nil)

	if cfg.Exports.Enabled {
		exportSvc, queue, err := buildExports(ctx, cfg, db, reviewRepo, templateRepo, answerRepo, metrics, logr)
		if err != nil {
			app.shutdown()
			return nil, err
		}
		app.exports = handler.NewExportHandler(exportSvc)
		app.queues = append(app.queues, queue)
	}

	if cfg.Auth.Enabled {
		app.tokens = service.NewTokenService(service.TokenConfig{
			Secret:     cfg.Auth.Secret,
			Issuer:     cfg.Auth.Issuer,
			Expiration: cfg.Auth.Expiration,
		})
	}

	return app, nil
}

func buildNotifications(ctx context.Context, cfg *config.Config, reviews *repository.ReviewRepository, staff *repository.StaffRepository, metrics *service.MetricsService, logr *zap.Logger) (*service.NotificationService, *jobs.Queue, error) {
	sender, err := mailer.NewSMTPMailer(cfg.Notifications)
	if err != nil {
		return nil, nil, err
	}
	notifications := service.NewNotificationService(reviews, staff, sender, nil, metrics, logr)
	queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	queue.Start(ctx)
	notifications.SetQueue(queue)
	return notifications, queue, nil
}

func buildExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, reviews *repository.ReviewRepository, templates *repository.TemplateRepository, answers *repository.AnswerRepository, metrics *service.MetricsService, logr *zap.Logger) (*service.ExportJobService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(service.ExportReviewSource{
		Reviews:   reviews,
		Questions: templates,
		Answers:   answers,
	}, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	jobRepo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(jobRepo, exporter, cfg.Exports.WorkerRetries, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	queue.Start(ctx)

	svc := service.NewExportJobService(jobRepo, reviews, queue, exporter, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	svc.RecoverPendingJobs(ctx)
	svc.StartCleanup(ctx)
	return svc, queue, nil
}
