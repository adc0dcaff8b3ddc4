package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/duskmere/tension-engine/backend/internal/analysis"
	"github.com/duskmere/tension-engine/backend/internal/conflict"
	"github.com/duskmere/tension-engine/backend/internal/config"
	"github.com/duskmere/tension-engine/backend/internal/coordinator"
	"github.com/duskmere/tension-engine/backend/internal/environment"
	"github.com/duskmere/tension-engine/backend/internal/faction"
	"github.com/duskmere/tension-engine/backend/internal/health"
	"github.com/duskmere/tension-engine/backend/internal/jobs"
	"github.com/duskmere/tension-engine/backend/internal/prediction"
	"github.com/duskmere/tension-engine/backend/internal/tenbus"
	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
	"github.com/duskmere/tension-engine/backend/pkg/tenmetrics"
)

func main() {
	log := initializeLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("server_port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Str("config_dir", cfg.Domain.DataDir).
		Msg("starting tension simulation engine")

	domainConfig := tenconfig.NewYAMLRepository(cfg.Domain.DataDir, log)
	bus := tenbus.NewInMemoryBus(log)
	metrics := tenmetrics.NewRegistry()

	cache, cacheRedisClient := buildCache(cfg, log)

	coord := wireCoordinator(domainConfig, bus, metrics, cache, log)

	queue, err := jobs.NewJobQueue(coordinator.RedisConfig{
		Host:     cfg.Jobs.RedisHost,
		Port:     cfg.Jobs.RedisPort,
		Password: cfg.Jobs.RedisPassword,
		DB:       cfg.Jobs.RedisDB,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job queue")
	}

	jobs.NewJobHandlers(coord, log).RegisterAll(queue)
	if err := jobs.RegisterPeriodicTasks(queue, jobs.Schedule{
		TensionDecayInterval: cfg.Jobs.DecayInterval,
		FactionDecayInterval: cfg.Jobs.FactionDecayInterval,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register periodic tasks")
	}

	go func() {
		if err := queue.Start(); err != nil {
			log.Error().Err(err).Msg("job queue processor stopped")
		}
	}()

	brokerRedisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Jobs.RedisHost, cfg.Jobs.RedisPort),
		Password: cfg.Jobs.RedisPassword,
		DB:       cfg.Jobs.RedisDB,
	})
	defer brokerRedisClient.Close()

	checkers := buildHealthCheckers(queue, cacheRedisClient, brokerRedisClient)
	httpServer := setupHTTPServer(cfg, metrics, checkers, log)

	runServer(httpServer, queue, log)

	log.Info().Msg("tensiond shutdown complete")
}

func initializeLogger() *logger.Logger {
	logConfig := logger.Config{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Pretty:      getEnvOrDefault("LOG_PRETTY", "false") == "true",
		CallerInfo:  true,
		StackTrace:  true,
		ServiceName: "tensiond",
		Environment: getEnvOrDefault("ENV", "development"),
		TimeFormat:  time.RFC3339,
	}
	return logger.New(logConfig)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// buildCache selects the coordinator's comprehensive-analysis cache backend.
// "redis" shares cached results across tensiond instances; anything else,
// including the default "memory", keeps them process-local. The returned
// *redis.Client is nil for the memory backend -- buildHealthCheckers skips
// a cache checker in that case rather than reporting a connection tensiond
// never opened.
func buildCache(cfg *config.Config, log *logger.Logger) (coordinator.Cache, *redis.Client) {
	if cfg.Cache.Backend != "redis" {
		return coordinator.NewMemoryCache(), nil
	}

	redisCache, err := coordinator.NewRedisCache(context.Background(), coordinator.RedisConfig{
		Host:     cfg.Cache.Host,
		Port:     cfg.Cache.Port,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to cache redis")
	}
	return redisCache, redisCache.Client()
}

// wireCoordinator builds every engine against shared stores and fans them
// into a single Coordinator. The host-owned collaborator interfaces
// (faction rosters, player activity, neighbor tension, poi type resolution)
// are left unset here: a standalone tensiond process has no host game to
// ask, and every engine already degrades gracefully without them.
func wireCoordinator(cfg tenconfig.ConfigRepository, bus tenbus.Bus, metrics *tenmetrics.Registry, cache coordinator.Cache, log *logger.Logger) *coordinator.Coordinator {
	locations := tenstore.NewTensionStateRepository()
	history := tenstore.NewSampleHistoryRepository()
	anomalies := tenstore.NewAnomalyHistoryRepository()
	relationships := tenstore.NewFactionRelationshipRepository()
	accuracy := tenstore.NewPredictionAccuracyRepository()

	envEngine := environment.NewEngine(environment.Dependencies{
		Config: cfg, Store: locations, History: history, Bus: bus, Metrics: metrics, Log: log,
	})
	factionEngine := faction.NewEngine(faction.Dependencies{
		Config: cfg, Store: relationships, Bus: bus, Metrics: metrics, Log: log,
	})
	conflictEvaluator := conflict.NewEvaluator(conflict.Dependencies{
		Config: cfg, Store: locations, Env: envEngine,
		RNG: rand.New(rand.NewSource(time.Now().UnixNano())),
		Bus: bus, Metrics: metrics, Log: log,
	})
	analyzer := analysis.NewAnalyzer(analysis.Dependencies{
		Config: cfg, History: history, Locations: locations, Anomalies: anomalies, Metrics: metrics, Log: log,
	})
	predictor := prediction.NewEngine(prediction.Dependencies{
		Config: cfg, History: history, Locations: locations, Accuracy: accuracy,
		Relationships: relationships, Metrics: metrics, Log: log,
	})

	return coordinator.New(coordinator.Dependencies{
		Environment: envEngine,
		Faction:     factionEngine,
		Conflict:    conflictEvaluator,
		Analysis:    analyzer,
		Prediction:  predictor,
		Bus:         bus,
		Cache:       cache,
		Log:         log,
	})
}

// buildHealthCheckers always includes the job queue checker; it adds a
// Redis checker for the cache only when tensiond actually opened a
// connection to one, and always adds one for the job broker since asynq
// requires Redis regardless of cache backend.
func buildHealthCheckers(queue *jobs.JobQueue, cacheRedisClient, brokerRedisClient *redis.Client) []health.Checker {
	checkers := []health.Checker{
		&health.JobQueueChecker{Queue: queue},
		&health.RedisChecker{Name_: "jobs_broker", Client: brokerRedisClient},
	}
	if cacheRedisClient != nil {
		checkers = append(checkers, &health.RedisChecker{Name_: "cache", Client: cacheRedisClient})
	}
	return checkers
}

// setupHTTPServer exposes only /healthz and /metrics. Tension state is read
// and written exclusively through the in-process coordinator API; this core
// has no REST surface of its own.
func setupHTTPServer(cfg *config.Config, metrics *tenmetrics.Registry, checkers []health.Checker, log *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		results := health.RunChecks(c.Request.Context(), checkers...)

		status := http.StatusOK
		for _, result := range results {
			if result.Status != "healthy" {
				status = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(status, gin.H{"checks": results})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func runServer(srv *http.Server, queue *jobs.JobQueue, log *logger.Logger) {
	go func() {
		log.Info().Str("address", srv.Addr).Msg("health/metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start health/metrics server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("health/metrics server forced to shutdown")
	}
	if err := queue.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop job queue cleanly")
	}
}
