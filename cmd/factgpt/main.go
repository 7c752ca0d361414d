package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/config"
	"github.com/ohmygaugh/factgpt/internal/db"
	dbRedis "github.com/ohmygaugh/factgpt/internal/db/redis"
	logpkg "github.com/ohmygaugh/factgpt/internal/logger"
	"github.com/ohmygaugh/factgpt/internal/metrics"
	"github.com/ohmygaugh/factgpt/internal/pipeline"
	"github.com/ohmygaugh/factgpt/internal/repository/resultcache"
	chiTransport "github.com/ohmygaugh/factgpt/internal/transport/chi"
	openaiChat "github.com/ohmygaugh/factgpt/internal/transport/openai"
	chatuc "github.com/ohmygaugh/factgpt/internal/usecase/chat"
	healthuc "github.com/ohmygaugh/factgpt/internal/usecase/health"
	"github.com/ohmygaugh/factgpt/internal/usecase/knowledge"
	"github.com/ohmygaugh/factgpt/internal/version"
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

	logger.Info("Starting factgpt API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("artifact", cfg.Pipeline.ArtifactPath),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Register chat/pipeline/cache metrics explicitly (no init())
	metrics.RegisterChatMetrics()

	ctx := context.Background()

	// Optional result cache
	var store db.Store
	if cfg.Cache.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			LocalTTL: time.Duration(cfg.Cache.LocalTTLSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to result cache")
		store = s
	}

	// Pipeline is loaded once, before serving.
	knowledgeSvc := knowledge.New(
		knowledge.LoaderFunc(func(context.Context) (knowledge.Pipeline, error) {
			return loadPipeline(cfg, store, logger)
		}),
		logger,
	).WithPlotDefaults(cfg.Pipeline.KYens, cfg.Pipeline.KWalk)

	if err := knowledgeSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to load pipeline", zap.Error(err))
	}
	metrics.PipelineDocuments.Set(float64(knowledgeSvc.Len()))

	completer := openaiChat.NewCompleter(&openaiChat.Config{
		APIKey:            cfg.Chat.APIKey,
		BaseURL:           cfg.Chat.BaseURL,
		Model:             cfg.Chat.Model,
		Temperature:       *cfg.Chat.Temperature,
		TopP:              cfg.Chat.TopP,
		MaxTokens:         cfg.Chat.MaxTokens,
		RequestsPerSecond: cfg.Chat.RequestsPerSecond,
		Burst:             cfg.Chat.Burst,
		Breaker: openaiChat.BreakerConfig{
			MaxRequests:      cfg.Chat.Breaker.MaxRequests,
			Interval:         time.Duration(cfg.Chat.Breaker.IntervalSec) * time.Second,
			Timeout:          time.Duration(cfg.Chat.Breaker.TimeoutSec) * time.Second,
			MinRequests:      cfg.Chat.Breaker.MinRequests,
			FailureThreshold: cfg.Chat.Breaker.FailureThreshold,
		},
		Logger: logger,
	})
	chatSvc := chatuc.New(knowledgeSvc, completer).
		WithContextLimits(cfg.Chat.SummaryChars, cfg.Chat.ContextChars)

	// Health service. Pass nil interfaces, not typed nil pointers, for absent checks.
	healthSvc := healthuc.New(knowledgeSvc)
	if store != nil {
		healthSvc.With("cache", healthuc.CheckerFunc(store.Ping))
	}
	if cfg.Chat.HealthCheck {
		healthSvc.With("llm", completer)
	}

	server := chiTransport.NewServer(knowledgeSvc, chatSvc, healthSvc, logger)

	r := chiTransport.NewRouter(server,
		chiTransport.CORSOptions{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowCredentials: *cfg.CORS.AllowCredentials,
		},
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		metrics.Middleware(),
	)

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

// loadPipeline opens the artifact and, when a store is configured, wraps it in the result cache.
func loadPipeline(cfg config.Config, store db.Store, logger *zap.Logger) (knowledge.Pipeline, error) {
	p, err := pipeline.Open(cfg.Pipeline.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Pipeline.ArtifactPath, err)
	}
	if store == nil {
		return p, nil
	}
	return resultcache.New(
		p, store, p.Digest(),
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.ResultCacheTotal, logger,
	), nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
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
			ctx, ev := logpkg.ContextWithEvent(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request, with handler annotations appended
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			reqLogger.Info("http_request", append(fields, ev.Fields()...)...)
		})
	}
}
