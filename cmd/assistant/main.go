// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pet-search-assistant/internal/api"
	"pet-search-assistant/internal/assistant"
	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/common/database"
	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/common/observability"
	"pet-search-assistant/internal/embedding"
	extractintent "pet-search-assistant/internal/pipeline/extract-intent"
	resolvecontext "pet-search-assistant/internal/pipeline/resolve-context"
	retrieveproducts "pet-search-assistant/internal/pipeline/retrieve-products"
	"pet-search-assistant/internal/profile"
	"pet-search-assistant/internal/search"
	"pet-search-assistant/internal/sessionstore"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init session store ---
	storeCfg := sessionstore.LoadConfig(cfg)
	var store sessionstore.Store
	var redisClient *database.RedisClient

	checks := []api.HealthCheck{
		{Name: "postgres", Check: pg.Ping},
		{Name: "elasticsearch", Check: func(ctx context.Context) error {
			return esClient.PingIndex(ctx, cfg.Search.Index)
		}},
	}

	if storeCfg.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")

		store = sessionstore.NewRedisStore(storeCfg, redisClient.GetClient())
		checks = append(checks, api.HealthCheck{Name: "redis", Check: redisClient.Ping})
	} else {
		store = sessionstore.NewMemoryStore(storeCfg)
		zapLog.Info("Using in-memory session store")
	}

	// --- Wire the pipeline ---
	embedder := embedding.NewClient(embedding.LoadConfig(cfg), log)
	searcher := search.NewKNNSearcher(search.LoadConfig(cfg), esClient.Client, embedder, log)

	extractor := extractintent.NewHandler(extractintent.LoadConfig(cfg), log)
	resolver := resolvecontext.NewHandler(resolvecontext.LoadConfig(cfg), log)
	retriever := retrieveproducts.NewHandler(retrieveproducts.LoadConfig(cfg), searcher, log)
	profiles := profile.NewStore(pg.DB, log)

	a := assistant.New(
		assistant.LoadConfig(cfg),
		store, extractor, resolver, retriever, profiles,
		log,
	)
	server := api.NewServer(cfg, a, log, checks...)
	server.SetTurnRecorder(obs)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Wait for shutdown signal ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
