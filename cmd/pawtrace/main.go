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

	"github.com/pawtrace/pawtrace/internal/config"
	dbRedis "github.com/pawtrace/pawtrace/internal/db/redis"
	"github.com/pawtrace/pawtrace/internal/domain"
	logpkg "github.com/pawtrace/pawtrace/internal/logger"
	"github.com/pawtrace/pawtrace/internal/metrics"
	alertrepo "github.com/pawtrace/pawtrace/internal/repository/alert"
	"github.com/pawtrace/pawtrace/internal/repository/embcache"
	"github.com/pawtrace/pawtrace/internal/transport/httpapi"
	"github.com/pawtrace/pawtrace/internal/transport/openaiemb"
	"github.com/pawtrace/pawtrace/internal/transport/photofetch"
	healthuc "github.com/pawtrace/pawtrace/internal/usecase/health"
	matchuc "github.com/pawtrace/pawtrace/internal/usecase/match"
	nearbyuc "github.com/pawtrace/pawtrace/internal/usecase/nearby"
	rankuc "github.com/pawtrace/pawtrace/internal/usecase/rank"
	reportuc "github.com/pawtrace/pawtrace/internal/usecase/report"
	"github.com/pawtrace/pawtrace/internal/version"
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

	logger.Info("Starting pawtrace API server",
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

	// Register the non-HTTP metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	repo := alertrepo.New(store)
	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create alert index", zap.Error(err))
	}

	imageEmb, textEmb, imageCheck, textCheck := buildEmbedders(cfg, store, logger)
	logger.Info("Embedders created",
		zap.String("image_model", cfg.Embedding.Image.Model),
		zap.String("text_model", cfg.Embedding.Text.Model),
	)

	photos := photofetch.New(time.Duration(cfg.Matching.PhotoFetchTimeoutSec) * time.Second)

	// Use case services
	reportSvc := reportuc.New(repo, photos, imageEmb, textEmb)
	nearbySvc := nearbyuc.New(repo)
	matchSvc := matchuc.New(photos, imageEmb, textEmb, rankuc.New(repo))
	healthSvc := healthuc.New(store, imageCheck, textCheck)

	server := httpapi.NewServer(reportSvc, nearbySvc, matchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// buildEmbedders assembles the per-modality chains: OpenAI-compatible
// provider wrapped in a Redis-backed cache. The base providers double
// as health checkers (the cache layer has no availability of its own).
func buildEmbedders(
	cfg config.Config, store *dbRedis.Store, logger *zap.Logger,
) (domain.ImageEmbedder, domain.TextEmbedder, healthuc.EmbeddingChecker, healthuc.EmbeddingChecker) {
	cacheTTL := time.Duration(cfg.Embedding.CacheTTLHour) * time.Hour

	imageBase := openaiemb.NewImageEmbedder(&openaiemb.Config{
		APIKey:     cfg.Embedding.Image.APIKey,
		BaseURL:    cfg.Embedding.Image.BaseURL,
		Model:      cfg.Embedding.Image.Model,
		Dimensions: cfg.Embedding.Image.Dimensions,
		Logger:     logger,
	})
	textBase := openaiemb.NewTextEmbedder(&openaiemb.Config{
		APIKey:     cfg.Embedding.Text.APIKey,
		BaseURL:    cfg.Embedding.Text.BaseURL,
		Model:      cfg.Embedding.Text.Model,
		Dimensions: cfg.Embedding.Text.Dimensions,
		Logger:     logger,
	})

	return embcache.NewImage(imageBase, store, cacheTTL, logger),
		embcache.NewText(textBase, store, cacheTTL, logger),
		imageBase, textBase
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
