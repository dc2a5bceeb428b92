package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/app"
	"github.com/webscout/orchestrator/internal/config"
	"github.com/webscout/orchestrator/internal/health"
	"github.com/webscout/orchestrator/internal/httpapi"
	"github.com/webscout/orchestrator/internal/logging"
	"github.com/webscout/orchestrator/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to CONFIG_PATH or ./config/webscout.yaml)")
	flag.Parse()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, level, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Info("Configuration loaded", zap.String("path", used))
	} else {
		logger.Info("No config file found; using defaults and environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Initialize(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	}, logger)
	if err != nil {
		logger.Warn("Tracing unavailable, continuing without it", zap.Error(err))
	}

	components := app.Build(cfg, logger)

	// Health manager; breakers report degraded while open but never block readiness.
	hm := health.NewManager(logger)
	_ = hm.RegisterChecker(health.NewBreakerHealthChecker(components.LLMBreaker, false))
	_ = hm.RegisterChecker(health.NewBreakerHealthChecker(components.SearchBreaker, false))

	var rdb *redis.Client
	var limiter httpapi.Limiter
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RedisAddr != "" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
			_ = hm.RegisterChecker(health.NewRedisHealthChecker(rdb))
			limiter = httpapi.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute, logger)
			logger.Info("Rate limiting via Redis", zap.String("addr", cfg.RateLimit.RedisAddr))
		} else {
			limiter = httpapi.NewLocalLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
			logger.Info("Rate limiting in process")
		}
	}

	// Public API
	mux := http.NewServeMux()
	var limit func(http.Handler) http.Handler
	if limiter != nil {
		limit = httpapi.RateLimit(limiter, logger)
	}
	httpapi.NewResearchHandler(components.Pipeline, logger).RegisterRoutes(mux, limit)
	apiServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           httpapi.Chain(mux, httpapi.RequestID(logger), httpapi.AccessLog(logger), httpapi.CORS(cfg.CORS.AllowedOrigins)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Admin endpoints: health and metrics
	adminMux := http.NewServeMux()
	health.NewHTTPHandler(hm, logger).RegisterRoutes(adminMux)
	adminMux.Handle("GET /metrics", promhttp.Handler())
	adminServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.AdminPort),
		Handler:           adminMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	loader.Watch(func(updated *config.Config) {
		lvl := logging.ParseLevel(updated.Logging.Level)
		if lvl != level.Level() {
			level.SetLevel(lvl)
			logger.Info("Log level updated", zap.String("level", lvl.String()))
		}
	}, func(err error) {
		logger.Warn("Config reload failed", zap.Error(err))
	})

	serve := func(name string, srv *http.Server) {
		logger.Info("HTTP server listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.String("server", name), zap.Error(err))
			stop()
		}
	}
	go serve("admin", adminServer)
	go serve("api", apiServer)

	<-ctx.Done()
	logger.Info("Shutting down research service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", zap.Error(err))
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin server shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}
}
