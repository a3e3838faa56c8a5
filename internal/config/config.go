package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPricingHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType        string
	DBHost        string
	DBPort        string
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string
	DBMaxIdleConn int
	DBMaxOpenConn int

	// EncryptionKey is the hex-encoded 32-byte key protecting stored Neon API keys.
	EncryptionKey string

	AuthJWTSecret string
	JobsSecret    string

	NeonAPIBase string

	StripeSecretKey     string
	StripeWebhookSecret string

	FedaPaySecretKey     string
	FedaPayWebhookSecret string
	FedaPayEnvironment   string

	AppBaseURL string

	InvoiceDueDays        int
	OverdueGraceDays      int
	FetchDelayMillis      int
	FetchDelayThreshold   int
	ProviderTimeoutMillis int

	SeedDemo bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "neonmeter"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:        getenv("DATABASE_TYPE", "postgres"),
		DBHost:        getenv("DATABASE_HOST", "localhost"),
		DBPort:        getenv("DATABASE_PORT", "5432"),
		DBName:        getenv("DATABASE_NAME", "neonmeter"),
		DBUser:        getenv("DATABASE_USER", "postgres"),
		DBPassword:    getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:     getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn: getenvInt("DATABASE_MAX_IDLE_CONN", 4),
		DBMaxOpenConn: getenvInt("DATABASE_MAX_OPEN_CONN", 16),

		EncryptionKey: strings.TrimSpace(getenv("ENCRYPTION_KEY", "")),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		JobsSecret:    strings.TrimSpace(getenv("JOBS_SECRET", "")),

		NeonAPIBase: getenv("NEON_API_BASE", "https://console.neon.tech/api/v2"),

		StripeSecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),

		FedaPaySecretKey:     strings.TrimSpace(getenv("FEDAPAY_SECRET_KEY", "")),
		FedaPayWebhookSecret: strings.TrimSpace(getenv("FEDAPAY_WEBHOOK_SECRET", "")),
		FedaPayEnvironment:   getenv("FEDAPAY_ENVIRONMENT", "sandbox"),

		AppBaseURL: getenv("APP_BASE_URL", "http://localhost:8080"),

		InvoiceDueDays:        getenvInt("INVOICE_DUE_DAYS", 15),
		OverdueGraceDays:      getenvInt("OVERDUE_GRACE_DAYS", 7),
		FetchDelayMillis:      getenvInt("USAGE_FETCH_DELAY_MS", 1500),
		FetchDelayThreshold:   getenvInt("USAGE_FETCH_DELAY_THRESHOLD", 10),
		ProviderTimeoutMillis: getenvInt("PROVIDER_TIMEOUT_MS", 30000),

		SeedDemo: getenvBool("SEED_DEMO", false),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
