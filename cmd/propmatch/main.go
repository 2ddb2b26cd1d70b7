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

	"github.com/tytac116/PropMatch/internal/config"
	"github.com/tytac116/PropMatch/internal/db"
	dbRedis "github.com/tytac116/PropMatch/internal/db/redis"
	"github.com/tytac116/PropMatch/internal/domain"
	logpkg "github.com/tytac116/PropMatch/internal/logger"
	"github.com/tytac116/PropMatch/internal/metrics"
	budgetrepo "github.com/tytac116/PropMatch/internal/repository/budget"
	"github.com/tytac116/PropMatch/internal/repository/embcache"
	"github.com/tytac116/PropMatch/internal/repository/expcache"
	listingrepo "github.com/tytac116/PropMatch/internal/repository/listing"
	vectorrepo "github.com/tytac116/PropMatch/internal/repository/vector"
	chiTransport "github.com/tytac116/PropMatch/internal/transport/chi"
	openaiTransport "github.com/tytac116/PropMatch/internal/transport/openai"
	embeddinguc "github.com/tytac116/PropMatch/internal/usecase/embedding"
	explainuc "github.com/tytac116/PropMatch/internal/usecase/explain"
	healthuc "github.com/tytac116/PropMatch/internal/usecase/health"
	"github.com/tytac116/PropMatch/internal/usecase/llmusage"
	searchuc "github.com/tytac116/PropMatch/internal/usecase/search"
	"github.com/tytac116/PropMatch/internal/version"
)

func main() {
	// .env is optional; deployments set the environment directly.
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

	logger.Info("Starting PropMatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	logger.Info("Connected to redis")

	listings, err := listingrepo.New(cfg.Postgres.DSN, listingrepo.PoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Minute,
	})
	if err != nil {
		logger.Fatal("Failed to open listing store", zap.Error(err))
	}
	defer listings.Close()

	if err := listings.Ping(ctx); err != nil {
		logger.Fatal("Postgres not ready", zap.Error(err))
	}
	logger.Info("Connected to postgres")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterExplainMetrics()

	// Single BudgetTracker shared by embeddings and chat. Zero limits
	// mean unlimited; the tracker still counts usage for reporting.
	budgetCfg := cfg.OpenAI.Budget
	action := llmusage.BudgetActionWarn
	if budgetCfg.Action == "reject" {
		action = llmusage.BudgetActionReject
	}
	budget := llmusage.NewBudgetTracker(
		"openai", budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
	).WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))

	// The base embedder doubles as the LLM liveness probe; the chat
	// client reaches the same provider.
	queryEmbedder, baseEmbedder := buildEmbedder(cfg.OpenAI, store, budget, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.OpenAI.EmbeddingModel),
		zap.Int("dimensions", cfg.OpenAI.EmbeddingDimensions),
	)

	retriever := vectorrepo.New(store, queryEmbedder, vectorrepo.Config{
		IndexName:  cfg.Search.IndexName,
		KeyPrefix:  cfg.Search.VectorKeyPrefix,
		Dimensions: cfg.OpenAI.EmbeddingDimensions,
	})
	if err := retriever.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	corpus := searchuc.NewCorpus(logger)
	if err := corpus.Rebuild(ctx, listings); err != nil {
		logger.Fatal("Failed to build lexical corpus", zap.Error(err))
	}

	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.ChatModel,
		Provider: "openai",
		Logger:   logger,
	})

	expCache := buildExplanationCache(cfg.Explain, store, logger)

	weights := weightsFromConfig(cfg.Search.Weights)
	if err := weights.Validate(); err != nil {
		logger.Fatal("Invalid scoring weights", zap.Error(err))
	}

	// Create use case services
	explainSvc := explainuc.New(chat, expCache, listings, budget, weights,
		explainuc.Config{
			BatchSize: cfg.Explain.BatchSize,
			Timeout:   time.Duration(cfg.Explain.TimeoutSec) * time.Second,
		}, logger)

	searchSvc := searchuc.New(retriever, listings, corpus, weights, explainSvc,
		searchuc.Config{
			DefaultPageSize: cfg.Search.DefaultPageSize,
			MaxPageSize:     cfg.Search.MaxPageSize,
		}, logger)

	if cfg.Explain.WarmCache {
		warmer, err := explainuc.NewWarmer(explainSvc, cfg.Explain.WarmPoolSize, logger)
		if err != nil {
			logger.Fatal("Failed to create cache warmer", zap.Error(err))
		}
		defer warmer.Close()
		searchSvc.WithWarmer(warmer)
		logger.Info("Explanation cache warming enabled",
			zap.Int("pool_size", cfg.Explain.WarmPoolSize))
	}

	usageSvc := llmusage.New(budget)

	healthSvc := healthuc.New(listings, store, baseEmbedder)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, explainSvc, expCache, usageSvc, healthSvc, logger)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached ->
// Instrumented. The undecorated base is returned alongside so the
// health service can probe the provider without touching the cache.
func buildEmbedder(
	cfg config.OpenAIConfig,
	store db.Store,
	budget *llmusage.BudgetTracker,
	logger *zap.Logger,
) (domain.Embedder, *openaiTransport.Embedder) {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, "openai", cfg.EmbeddingModel, budget, logger,
	)

	return embedder, base
}

// explanationCache joins the read-write contract the explainer needs
// with the invalidation contract the transport exposes.
type explanationCache interface {
	explainuc.Cache
	chiTransport.ExplanationCache
}

func buildExplanationCache(cfg config.ExplainConfig, store db.Store, logger *zap.Logger) explanationCache {
	ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
	if cfg.CacheBackend == "memory" {
		cache, err := expcache.NewMemory(1024, ttl, metrics.ExplanationCacheTotal)
		if err != nil {
			logger.Fatal("Failed to create explanation cache", zap.Error(err))
		}
		return cache
	}
	return expcache.NewRedis(store, ttl, metrics.ExplanationCacheTotal, logger)
}

// weightsFromConfig maps the YAML weight block onto the domain weight
// set. Unset fields keep the tuned defaults.
func weightsFromConfig(cfg config.WeightsConfig) domain.ScoringWeights {
	w := domain.DefaultScoringWeights()
	if cfg.VectorWeight > 0 {
		w.VectorWeight = cfg.VectorWeight
	}
	if cfg.LexicalWeight > 0 {
		w.LexicalWeight = cfg.LexicalWeight
	}
	if cfg.BedroomBonus > 0 {
		w.BedroomBonus = cfg.BedroomBonus
	}
	if cfg.TypeBonus > 0 {
		w.TypeBonus = cfg.TypeBonus
	}
	if cfg.PriceBonusScale > 0 {
		w.PriceBonusScale = cfg.PriceBonusScale
	}
	if cfg.LocationBonus > 0 {
		w.LocationBonus = cfg.LocationBonus
	}
	if cfg.FeatureBonusPerTag > 0 {
		w.FeatureBonusPerTag = cfg.FeatureBonusPerTag
	}
	if cfg.PriceTolerance > 0 {
		w.PriceTolerance = cfg.PriceTolerance
	}
	if cfg.AIWeight > 0 {
		w.AIWeight = cfg.AIWeight
	}
	return w
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

			// Set X-Request-ID in response header
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
