package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/gateway"
	"github.com/af-corp/relay-gateway/internal/ratelimit"
	"github.com/af-corp/relay-gateway/internal/relay"
	"github.com/af-corp/relay-gateway/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	// Local development credentials; missing file is fine.
	godotenv.Load()

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg := loader.Config()
	setLogLevel(logLevel, cfg.Telemetry.LogLevel)

	// Connect to Redis (rate limiting only; gateway runs without it)
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (rate limiting fails open)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics()
	stats := relay.NewStats()

	// Build fallback chains; a config reload swaps them atomically.
	var chainMu sync.RWMutex
	chatChain := relay.BuildChatChain(loader.Providers().Chat, stats, metrics)
	imageChain := relay.BuildImageChain(loader.Providers().Image, stats, metrics)

	loader.OnReload(func() {
		newChat := relay.BuildChatChain(loader.Providers().Chat, stats, metrics)
		newImage := relay.BuildImageChain(loader.Providers().Image, stats, metrics)
		chainMu.Lock()
		chatChain = newChat
		imageChain = newImage
		chainMu.Unlock()
		logger.Info("provider chains reloaded",
			"chat_providers", newChat.Providers(),
			"image_providers", newImage.Providers(),
		)
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	getChatChain := func() *relay.ChatChain {
		chainMu.RLock()
		defer chainMu.RUnlock()
		return chatChain
	}
	getImageChain := func() *relay.ImageChain {
		chainMu.RLock()
		defer chainMu.RUnlock()
		return imageChain
	}

	handler := gateway.NewHandler(getChatChain, getImageChain, loader.Config, loader.Providers, stats)

	limiter := ratelimit.NewLimiter(rdb)
	rateLimitCfg := func() config.RateLimitConfig { return loader.Config().RateLimit }

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/relay/v1/health", healthHandler)
	r.Get("/relay/v1/providers", handler.ProviderStats)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, rateLimitCfg, metrics))
		r.Post("/v1/chat/completions", handler.ChatCompletions)
		r.Post("/v1/images/generations", handler.ImageGenerations)
		r.Get("/v1/models", handler.ListModels)
	})

	// Metrics on a separate port, never exposed with the API
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics server starting", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting", "addr", addr, "version", version,
			"chat_providers", chatChain.Providers(),
			"image_providers", imageChain.Providers(),
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func setLogLevel(v *slog.LevelVar, level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return
	}
	v.Set(l)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
