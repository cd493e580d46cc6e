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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/config"
	dbRedis "github.com/inshort-cloud/billfeed/internal/db/redis"
	"github.com/inshort-cloud/billfeed/internal/domain"
	logpkg "github.com/inshort-cloud/billfeed/internal/logger"
	"github.com/inshort-cloud/billfeed/internal/metrics"
	billrepo "github.com/inshort-cloud/billfeed/internal/repository/bill"
	"github.com/inshort-cloud/billfeed/internal/repository/embcache"
	searchrepo "github.com/inshort-cloud/billfeed/internal/repository/search"
	chiTransport "github.com/inshort-cloud/billfeed/internal/transport/chi"
	groqGen "github.com/inshort-cloud/billfeed/internal/transport/groq"
	openaiEmb "github.com/inshort-cloud/billfeed/internal/transport/openai"
	healthuc "github.com/inshort-cloud/billfeed/internal/usecase/health"
	ingestuc "github.com/inshort-cloud/billfeed/internal/usecase/ingest"
	recommenduc "github.com/inshort-cloud/billfeed/internal/usecase/recommend"
	"github.com/inshort-cloud/billfeed/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

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

	logger.Info("Starting billfeed API server",
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

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterProviderMetrics()

	// Embedder chain: OpenAI provider wrapped by the store-backed cache
	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(
		baseEmbedder, store, metrics.EmbeddingCacheTotal, logger,
	)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	summarizer := groqGen.NewSummarizer(&groqGen.Config{
		APIKey:       cfg.Generation.APIKey,
		BaseURL:      cfg.Generation.BaseURL,
		Model:        cfg.Generation.Model,
		MaxTokens:    cfg.Generation.MaxTokens,
		Temperature:  cfg.Generation.Temperature,
		ExcerptLimit: cfg.Generation.ExcerptLimit,
		Timeout:      time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:       logger,
	})
	logger.Info("Summarizer created", zap.String("model", cfg.Generation.Model))

	bills := billrepo.New(store, cfg.Index.Name, cfg.Embedding.Dimensions).
		WithHNSW(billrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	searcher := searchrepo.New(store, cfg.Index.Name)

	if err := bills.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure bills index", zap.Error(err))
	}

	recommendSvc := recommenduc.New(
		searcher, bills, embedder, summarizer,
		recommenduc.WithWorkers(cfg.Generation.Workers),
		recommenduc.WithSummaryTimeout(time.Duration(cfg.Generation.TimeoutSec)*time.Second),
	)
	ingestSvc := ingestuc.New(bills, embedder, cfg.Embedding.Dimensions)
	healthSvc := healthuc.New(store, baseEmbedder, summarizer, bills)

	server := chiTransport.NewServer(recommendSvc, ingestSvc, healthSvc, chiTransport.Limits{
		DefaultTopK:     cfg.Recommend.DefaultTopK,
		DefaultMinScore: cfg.Recommend.DefaultMinScore,
		MaxTopK:         cfg.Recommend.MaxTopK,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
