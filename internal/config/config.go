package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Payment gateway
	GatewayBaseURL string
	// PlatformWalletID receives the platform margin on every split.
	PlatformWalletID string
	// MarginRate is the platform margin over the merchant's desired net.
	MarginRate float64
	// FeeSchedulePath optionally overrides the built-in fee table (JSON).
	FeeSchedulePath string
	// CheckoutExpiryMinutes is placed on the gateway request; the gateway
	// enforces it, not this service.
	CheckoutExpiryMinutes int
	// DefaultGatewayAPIKey/Name back the single-tenant fallback source when
	// Supabase is not configured.
	DefaultGatewayAPIKey string
	DefaultGatewayName   string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Caching / idempotency
	CredentialsCacheTTL time.Duration
	DedupWindow         time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase (record backend: tenant credentials + order write-back)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	UseSupabase        bool

	// Service-to-service auth. Empty secret disables the middleware.
	ServiceTokenSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GatewayBaseURL:        getEnv("GATEWAY_BASE_URL", "https://api.asaas.com/v3"),
		PlatformWalletID:      getEnv("PLATFORM_WALLET_ID", ""),
		MarginRate:            getEnvFloat("PLATFORM_MARGIN_RATE", 0.07),
		FeeSchedulePath:       getEnv("FEE_SCHEDULE_PATH", ""),
		CheckoutExpiryMinutes: getEnvInt("CHECKOUT_EXPIRY_MINUTES", 60),
		DefaultGatewayAPIKey:  getEnv("DEFAULT_GATEWAY_API_KEY", ""),
		DefaultGatewayName:    getEnv("DEFAULT_GATEWAY_NAME", "checkout-api"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CredentialsCacheTTL: getEnvDuration("CREDENTIALS_CACHE_TTL", 5*time.Minute),
		DedupWindow:         getEnvDuration("DEDUP_WINDOW", 15*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		UseSupabase:        getEnv("USE_SUPABASE", "true") == "true",

		ServiceTokenSecret: getEnv("SERVICE_TOKEN_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
