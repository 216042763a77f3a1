package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/config"
	dbRedis "github.com/recallhq/recall/internal/db/redis"
	"github.com/recallhq/recall/internal/domain"
	"github.com/recallhq/recall/internal/guard"
	logpkg "github.com/recallhq/recall/internal/logger"
	"github.com/recallhq/recall/internal/metrics"
	contentrepo "github.com/recallhq/recall/internal/repository/content"
	"github.com/recallhq/recall/internal/repository/embcache"
	roomrepo "github.com/recallhq/recall/internal/repository/room"
	chiTransport "github.com/recallhq/recall/internal/transport/chi"
	openaiEmb "github.com/recallhq/recall/internal/transport/openai"
	"github.com/recallhq/recall/internal/transport/w2g"
	contentuc "github.com/recallhq/recall/internal/usecase/content"
	healthuc "github.com/recallhq/recall/internal/usecase/health"
	roomuc "github.com/recallhq/recall/internal/usecase/room"
	"github.com/recallhq/recall/internal/version"
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

	logger.Info("Starting recall API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	vectorCfg := domain.VectorConfig{
		Model:          cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		DistanceMetric: domain.DefaultVectorConfig().DistanceMetric,
		Algorithm:      domain.DefaultVectorConfig().Algorithm,
	}

	repo := contentrepo.New(store, vectorCfg)
	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}
	logger.Info("Search index ready",
		zap.String("model", vectorCfg.Model),
		zap.Int("dimensions", vectorCfg.Dimensions),
	)

	// Build embedder chain — composition root
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		MaxRetries: cfg.Embedding.MaxRetries,
		BatchSize:  cfg.Embedding.BatchSize,
		Logger:     logger,
	})

	var embedder interface {
		domain.Embedder
		domain.BatchEmbedder
	} = base
	if cfg.Embedding.CacheEnabledOrDefault() {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding cache enabled")
	}

	policy := policyFromConfig(cfg.Budgets, logger)

	contentSvc := contentuc.New(repo, embedder, embedder, policy, logger)
	healthSvc := healthuc.New(store, base)

	// Watch rooms are optional; without a provider key the routes stay unmounted.
	var roomSvc *roomuc.Service
	if cfg.Rooms.APIKey != "" {
		provider := w2g.New(&w2g.Config{
			APIKey:  cfg.Rooms.APIKey,
			APIBase: cfg.Rooms.APIBase,
			Logger:  logger,
		})
		roomSvc = roomuc.New(roomrepo.New(store, cfg.Rooms.RoomTTL()), provider, logger)
		logger.Info("Watch rooms enabled", zap.Duration("ttl", cfg.Rooms.RoomTTL()))
	}

	server := chiTransport.NewServer(contentSvc, roomSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// policyFromConfig builds the store-operation budget table, applying
// millisecond overrides from configuration.
func policyFromConfig(b config.BudgetsConfig, logger *zap.Logger) *guard.Policy {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return guard.NewPolicy(logger).
		WithBudget(guard.Search, ms(b.SearchMs)).
		WithBudget(guard.Save, ms(b.SaveMs)).
		WithBudget(guard.Delete, ms(b.DeleteMs)).
		WithBudget(guard.Edit, ms(b.EditMs)).
		WithBudget(guard.BatchSave, ms(b.BatchSaveMs)).
		WithBudget(guard.List, ms(b.ListMs)).
		WithBudget(guard.Test, ms(b.TestMs))
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
