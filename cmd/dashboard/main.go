package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-dashboard/api/swagger"
	"github.com/noah-isme/student-dashboard/internal/fixtures"
	"github.com/noah-isme/student-dashboard/internal/handler"
	"github.com/noah-isme/student-dashboard/internal/repository"
	"github.com/noah-isme/student-dashboard/internal/server"
	"github.com/noah-isme/student-dashboard/internal/service"
	"github.com/noah-isme/student-dashboard/internal/store"
	"github.com/noah-isme/student-dashboard/pkg/apiclient"
	"github.com/noah-isme/student-dashboard/pkg/cache"
	"github.com/noah-isme/student-dashboard/pkg/config"
	"github.com/noah-isme/student-dashboard/pkg/logger"
	"github.com/noah-isme/student-dashboard/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Student Dashboard API
// @version 1.0.0
// @description Gateway over the student/course REST API backing the admin dashboard.
// @BasePath /api
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	dataset, err := fixtures.Load()
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()

	upstream, err := newUpstream(cfg, dataset, logr, metrics)
	if err != nil {
		return err
	}
	dashStore := store.New(upstream, store.WithLogger(logr))
	unsubscribe := dashStore.Subscribe(metrics.ObserveStoreState)
	defer unsubscribe()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	instance := uuid.NewString()
	students := service.NewStudentService(dashStore, validator.New(), logr)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Store:  dashStore,
		Trend:  dataset,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL, Instance: instance},
	})
	reports := service.NewReportService(dashStore, dataset, logr)
	chapters := service.NewChapterService(dashStore, dataset, logr)
	exports := service.NewExportService(dashStore, files, signer, metrics, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)
	exports.StartCleanup(ctx, cfg.Exports.CleanupInterval)

	readiness := map[string]handler.Pinger{}
	if redisClient != nil {
		readiness["redis"] = cacheRepo
	}

	router := server.NewRouter(cfg, logr, metrics, server.Handlers{
		Students:  handler.NewStudentHandler(students),
		Chapters:  handler.NewChapterHandler(chapters),
		State:     handler.NewStateHandler(dashStore),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Reports:   handler.NewReportHandler(reports),
		Exports:   handler.NewExportHandler(exports),
		Health:    handler.NewHealthHandler(metrics, readiness),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("data_source", cfg.Upstream.DataSource),
			zap.String("upstream", cfg.Upstream.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := cacheSvc.Invalidate(shutdownCtx, "dash:summary:"+instance+":*"); err != nil {
		logr.Warn("dashboard cache cleanup failed", zap.Error(err))
	}
	return srv.Shutdown(shutdownCtx)
}

func newUpstream(cfg *config.Config, dataset *fixtures.Dataset, logr *zap.Logger, metrics *service.MetricsService) (store.API, error) {
	if cfg.Upstream.DataSource == config.DataSourceMock {
		logr.Info("using embedded mock data source")
		return fixtures.NewSource(dataset), nil
	}
	return apiclient.New(cfg.Upstream.BaseURL,
		apiclient.WithLogger(logr),
		apiclient.WithObserver(metrics),
	)
}
