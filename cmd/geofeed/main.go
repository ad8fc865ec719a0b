package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geofeed/internal/config"
	"github.com/kailas-cloud/geofeed/internal/db/breaker"
	dbRedis "github.com/kailas-cloud/geofeed/internal/db/redis"
	logpkg "github.com/kailas-cloud/geofeed/internal/logger"
	"github.com/kailas-cloud/geofeed/internal/metrics"
	catalogrepo "github.com/kailas-cloud/geofeed/internal/repository/catalog"
	engagementrepo "github.com/kailas-cloud/geofeed/internal/repository/engagement"
	chiTransport "github.com/kailas-cloud/geofeed/internal/transport/chi"
	discoveryuc "github.com/kailas-cloud/geofeed/internal/usecase/discovery"
	engagementuc "github.com/kailas-cloud/geofeed/internal/usecase/engagement"
	healthuc "github.com/kailas-cloud/geofeed/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/geofeed/internal/usecase/recommend"
	"github.com/kailas-cloud/geofeed/internal/usecase/scoring"
	"github.com/kailas-cloud/geofeed/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting geofeed API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	redisStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer redisStore.Close()

	ctx := context.Background()
	if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register feed metrics explicitly (no init())
	metrics.RegisterFeedMetrics()

	store := breaker.New(redisStore, breaker.Config{
		Name:             "redis",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		Timeout:          time.Duration(cfg.Breaker.TimeoutSec) * time.Second,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreBreakerState.Set(float64(to))
			logger.Warn("Store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	// Repositories
	catalogRepo := catalogrepo.New(store, cfg.Storage.KeyPrefix).WithLimits(catalogrepo.Limits{
		Nested:    cfg.Feed.NestedLimit,
		MapVenues: cfg.Feed.MapVenueLimit,
	})
	if err := catalogRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure search indexes", zap.Error(err))
	}
	engagementRepo := engagementrepo.New(store, cfg.Storage.KeyPrefix)

	// Use case services
	popularWindow := time.Duration(cfg.Feed.PopularWindowDays) * 24 * time.Hour
	scoringCfg := scoring.Config{
		ClickWeight:     cfg.Scoring.ClickWeight,
		DwellWeight:     cfg.Scoring.DwellWeight,
		PreferenceBonus: cfg.Scoring.PreferenceBonus,
		ColdStartClicks: cfg.Scoring.ColdStartClicks,
		ColdStartDwell:  cfg.Scoring.ColdStartDwellMs,
		ColdStartScale:  cfg.Scoring.ColdStartScale,
		ColdStartFloor:  cfg.Scoring.ColdStartFloor,
		DecayRate:       cfg.Scoring.DecayRate,
	}

	discoverySvc := discoveryuc.New(catalogRepo, discoveryuc.Config{
		PageSize:  cfg.Feed.PageSize,
		MapWindow: time.Duration(cfg.Feed.MapWindowHours) * time.Hour,
	})
	recommendSvc := recommenduc.New(discoverySvc, engagementRepo,
		recommenduc.Config{
			TopN:          cfg.Feed.TopN,
			PopularWindow: popularWindow,
			DecayRate:     cfg.Scoring.DecayRate,
		},
		scoring.NewVenueScorer(engagementRepo, scoringCfg),
		scoring.NewEventScorer(engagementRepo, scoringCfg),
		scoring.NewPromotionScorer(engagementRepo, scoringCfg),
	)
	recorderSvc := engagementuc.New(catalogRepo, engagementRepo, popularWindow)
	healthSvc := healthuc.New(redisStore, redisStore, catalogRepo.IndexNames(), store)

	// Create chi server
	server := chiTransport.NewServer(
		discoverySvc, recommendSvc, recorderSvc, healthSvc,
		chiTransport.JWTAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		logger,
	)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(logger))
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
