package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/catalog"
	"github.com/cedisense/cedisense-bfa/internal/config"
	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/handler"
	"github.com/cedisense/cedisense-bfa/internal/infra/cache"
	"github.com/cedisense/cedisense-bfa/internal/infra/memstore"
	"github.com/cedisense/cedisense-bfa/internal/infra/observability"
	"github.com/cedisense/cedisense-bfa/internal/infra/resilience"
	"github.com/cedisense/cedisense-bfa/internal/infra/session"
	"github.com/cedisense/cedisense-bfa/internal/infra/supabase"
	"github.com/cedisense/cedisense-bfa/internal/port"
	"github.com/cedisense/cedisense-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "reading .env:", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.SupabaseEnabled()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("wallet_cache_ttl", cfg.WalletCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("session_verification", cfg.SupabaseJWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cedisense-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Category catalog ---
	cat := catalog.Default()
	if cfg.CategoryCatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CategoryCatalogPath)
		if err != nil {
			logger.Fatal("failed to load category catalog",
				zap.String("path", cfg.CategoryCatalogPath), zap.Error(err))
		}
	}
	logger.Info("category catalog loaded", zap.Int("categories", len(cat.All())))

	// --- Cache ---
	walletCache := cache.New[[]domain.Wallet](cfg.WalletCacheTTL)
	defer walletCache.Stop()

	// --- Store ---
	var store port.ReconcileStore
	var pinger handler.Pinger

	if cfg.SupabaseEnabled() {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		store = client
		pinger = client
	} else {
		logger.Warn("Supabase not configured, using in-memory store (data is lost on restart)")
		store = memstore.New()
	}

	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set, bearer tokens will be rejected")
	}

	// --- Services ---
	reconSvc := service.NewReconciliationService(
		store,
		cat,
		session.Resolver{},
		walletCache,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(reconSvc, pinger, session.NewVerifier(cfg.SupabaseJWTSecret), metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
