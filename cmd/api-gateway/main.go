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
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/handler"
	"github.com/noah-isme/academic-directory-api/internal/repository"
	"github.com/noah-isme/academic-directory-api/internal/service"
	"github.com/noah-isme/academic-directory-api/pkg/cache"
	"github.com/noah-isme/academic-directory-api/pkg/config"
	"github.com/noah-isme/academic-directory-api/pkg/database"
	"github.com/noah-isme/academic-directory-api/pkg/jobs"
	"github.com/noah-isme/academic-directory-api/pkg/logger"
	"github.com/noah-isme/academic-directory-api/pkg/phone"
	"github.com/noah-isme/academic-directory-api/pkg/storage"
)

// @title Academic Directory API
// @version 1.0.0
// @description Student representative directory with phone-number deduplication, verification, exports and a personal measurement tracker.
// @BasePath /api/v1
// @schemes http https
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

	if _, err := maxprocs.Set(maxprocs.Logger(logr.Sugar().Infof)); err != nil {
		logr.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Caching and rate limiting degrade to no-ops without Redis.
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	app, err := build(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to wire application", zap.Error(err))
	}
	defer app.shutdown()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

type application struct {
	auth            *service.AuthService
	metrics         *service.MetricsService
	users           *repository.UserRepository
	rateLimits      *repository.RateLimitRepository
	authHandler     *handler.AuthHandler
	accounts        *handler.UserHandler
	directory       *handler.DirectoryHandler
	representatives *handler.RepresentativeHandler
	exports         *handler.ExportJobHandler
	measurements    *handler.MeasurementHandler
	ops             *handler.MetricsHandler
	queue           *jobs.Queue
}

func (a *application) shutdown() {
	if a.queue != nil {
		a.queue.Stop()
	}
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	representativeRepo := repository.NewRepresentativeRepository(db)
	measurementRepo := repository.NewMeasurementRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	rateLimits := repository.NewRateLimitRepository(redisClient, "ratelimit")

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Directory.CacheTTL, logr, cfg.Directory.CacheEnabled)
	}

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	directorySvc := service.NewDirectoryService(directoryRepo, cacheSvc, validate, logr)
	representativeSvc := service.NewRepresentativeService(representativeRepo, directoryRepo, users, phone.NewNormalizer(cfg.Directory.PhoneRegion), validate, logr)
	representativeSvc.UseMetrics(metrics)
	submissionSvc := service.NewSubmissionService(representativeSvc, cfg.Directory.MaxBatchSize, metrics, logr)
	measurementSvc := service.NewMeasurementService(measurementRepo, measurementRepo.Unscoped(), validate, logr)

	app := &application{
		auth:            authSvc,
		metrics:         metrics,
		users:           users,
		rateLimits:      rateLimits,
		authHandler:     handler.NewAuthHandler(authSvc),
		accounts:        handler.NewUserHandler(service.NewUserService(users, validate, logr)),
		directory:       handler.NewDirectoryHandler(directorySvc),
		measurements:    handler.NewMeasurementHandler(measurementSvc),
		ops:             handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	}

	exportCfg := service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}
	if !cfg.Exports.Enabled {
		exporter := service.NewDirectoryExportService(representativeRepo, nil, nil, exportCfg, logr)
		app.representatives = handler.NewRepresentativeHandler(representativeSvc, submissionSvc, exporter)
		return app, nil
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewDirectoryExportService(representativeRepo, store, signer, exportCfg, logr)
	worker := service.NewExportWorker(exportJobRepo, exporter, metrics, logr)

	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, err error) {
			exportJobs.MarkExhausted(job, err)
		},
	})
	exportJobs = service.NewExportJobService(exportJobRepo, queue, exporter, metrics, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)

	app.queue = queue
	app.representatives = handler.NewRepresentativeHandler(representativeSvc, submissionSvc, exporter)
	app.exports = handler.NewExportJobHandler(exportJobs, logr)
	return app, nil
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
