package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/noplanalderson/argus/internal/adapter/controller/http/handlers"
	"github.com/noplanalderson/argus/internal/adapter/controller/http/middleware"
	"github.com/noplanalderson/argus/internal/adapter/external/blocklist"
	"github.com/noplanalderson/argus/internal/adapter/external/tip"
	"github.com/noplanalderson/argus/internal/adapter/repository/clickhouse"
	"github.com/noplanalderson/argus/internal/config"
	"github.com/noplanalderson/argus/internal/usecase/analyzer"
	"github.com/noplanalderson/argus/internal/usecase/decision"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := config.SetupLogger(cfg)
	logger.Info("Starting Argus API",
		"env", cfg.App.Env,
		"port", cfg.App.Port,
	)

	// ClickHouse
	conn, err := clickhouse.NewConnection(&cfg.ClickHouse, logger)
	if err != nil {
		logger.Error("Failed to connect to ClickHouse", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := clickhouse.EnsureSchema(ctx, conn); err != nil {
		cancel()
		logger.Error("Failed to apply ClickHouse schema", "error", err)
		os.Exit(1)
	}
	cancel()

	historyRepo := clickhouse.NewHistoryRepository(conn)
	observablesRepo := clickhouse.NewObservablesRepository(conn)
	jobsRepo := clickhouse.NewJobsRepository(conn)

	// Local block-set index
	index, err := blocklist.OpenIndex(cfg.Blocklist.IndexPath)
	if err != nil {
		logger.Error("Failed to open block-set index", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	builder := blocklist.NewBuilder(index, cfg.Blocklist.SourcePath, logger)

	// Provider descriptors: YAML file when configured, built-in set otherwise
	ipDescriptors := tip.DefaultIPDescriptors(cfg.TIP.Keys)
	hashDescriptors := tip.DefaultHashDescriptors(cfg.TIP.Keys)
	if cfg.TIP.DescriptorPath != "" {
		ipDescriptors, hashDescriptors, err = tip.LoadDescriptors(cfg.TIP.DescriptorPath, cfg.TIP.Keys)
		if err != nil {
			logger.Error("Failed to load provider descriptors", "path", cfg.TIP.DescriptorPath, "error", err)
			os.Exit(1)
		}
	}

	collector := tip.NewCollector(tip.Config{
		Concurrency:    cfg.TIP.Concurrency,
		RequestTimeout: cfg.TIP.RequestTimeout,
		Freshness:      cfg.TIP.Freshness,
		RateLimit:      rate.Limit(cfg.TIP.RateLimit),
		RateBurst:      cfg.TIP.RateBurst,
		CacheTTL:       cfg.TIP.CacheTTL,
	}, ipDescriptors, hashDescriptors, jobsRepo, logger)

	engine := decision.NewEngine(historyRepo, logger)

	service := analyzer.NewService(
		collector,
		index,
		engine,
		observablesRepo,
		cfg.Weights.IP,
		cfg.Weights.Hash,
		logger,
	)

	// Scheduled block-set rebuild
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Blocklist.RebuildSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := builder.Rebuild(ctx); err != nil {
			logger.Error("Scheduled block-set rebuild failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid block-set rebuild schedule", "schedule", cfg.Blocklist.RebuildSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Handlers
	analyzeHandler := handlers.NewAnalyzeHandler(service, historyRepo)
	blocklistHandler := handlers.NewBlocklistHandler(historyRepo, index, builder)
	providersHandler := handlers.NewProvidersHandler(collector)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(httprate.LimitByIP(100, time.Minute))

	// Health check (no auth required)
	r.Get("/health", handlers.HealthCheck(cfg, conn))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Auth.Secret))

		r.Post("/analyze", analyzeHandler.Analyze)
		r.Get("/check/{observable}", analyzeHandler.Check)
		r.Get("/history/{observable}", analyzeHandler.History)

		r.Route("/blocklist", func(r chi.Router) {
			r.Get("/", blocklistHandler.ListBlocked)
			r.Get("/24h", blocklistHandler.ListBlocked24h)
			r.Get("/index", blocklistHandler.IndexStats)
			r.Post("/index/rebuild", blocklistHandler.Rebuild)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providersHandler.List)
			r.Get("/cache", providersHandler.CacheStats)
			r.Delete("/cache", providersHandler.ClearCache)
		})
		r.Post("/cache/refresh/{observable}", providersHandler.RefreshObservable)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
