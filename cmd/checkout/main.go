package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inscrevo/checkout-api-go/internal/config"
	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/handler"
	"github.com/inscrevo/checkout-api-go/internal/infra/asaas"
	"github.com/inscrevo/checkout-api-go/internal/infra/cache"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/infra/resilience"
	"github.com/inscrevo/checkout-api-go/internal/infra/staticcreds"
	"github.com/inscrevo/checkout-api-go/internal/infra/supabase"
	"github.com/inscrevo/checkout-api-go/internal/port"
	"github.com/inscrevo/checkout-api-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.String("gateway_base_url", cfg.GatewayBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Float64("margin_rate", cfg.MarginRate),
		zap.Duration("credentials_cache_ttl", cfg.CredentialsCacheTTL),
		zap.Duration("dedup_window", cfg.DedupWindow),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "checkout-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Fee schedule ---
	schedule := domain.DefaultFeeSchedule()
	if cfg.FeeSchedulePath != "" {
		data, err := os.ReadFile(cfg.FeeSchedulePath)
		if err != nil {
			logger.Fatal("failed to read fee schedule", zap.String("path", cfg.FeeSchedulePath), zap.Error(err))
		}
		schedule, err = domain.ParseFeeSchedule(data)
		if err != nil {
			logger.Fatal("invalid fee schedule", zap.String("path", cfg.FeeSchedulePath), zap.Error(err))
		}
		logger.Info("fee schedule loaded", zap.String("path", cfg.FeeSchedulePath), zap.String("version", schedule.Version))
	}

	// --- Caches ---
	credsCache := cache.New[domain.TenantCredentials](cfg.CredentialsCacheTTL)
	dedupCache := cache.New[struct{}](cfg.DedupWindow)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	gatewayCB := resilience.NewCircuitBreaker("asaas")
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	gateway := asaas.NewClient(httpClient, cfg.GatewayBaseURL, gatewayCB, logger)

	var credsSource port.CredentialsSource
	var orderStore port.OrderStore
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as record backend", zap.String("supabase_url", cfg.SupabaseURL))
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			supabaseCB,
			resilienceCfg,
			logger,
		)
		credsSource = supabaseClient
		orderStore = supabaseClient
	} else {
		logger.Warn("Supabase not configured, using static single-tenant credentials")
		credsSource = staticcreds.New(cfg.DefaultGatewayAPIKey, cfg.DefaultGatewayName)
	}

	// --- Services ---
	calc := service.NewGrossUpCalculator(schedule, cfg.MarginRate)
	builder := service.NewCheckoutBuilder(calc, cfg.PlatformWalletID, cfg.CheckoutExpiryMinutes)
	orch := service.NewOrchestrator(gateway, builder, service.NewTextClassifier(), metrics, logger)
	checkoutSvc := service.NewCheckoutService(
		credsSource,
		orderStore,
		orch,
		calc,
		gateway,
		credsCache,
		dedupCache,
		bulkhead,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(checkoutSvc, metrics, cfg.ServiceTokenSecret, logger)

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
