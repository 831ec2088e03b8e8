package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration for the storefront API.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Checkout  CheckoutConfig
	Payments  PaymentsConfig
	Admin     AdminConfig
	Session   SessionConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port           int
	MetricsPath    string
	ShutdownGrace  int
	AllowedOrigins []string
	SecureCookies  bool
}

// DatabaseConfig selects the store backend. An empty URL with StoreBackend "memory"
// runs the service without Postgres.
type DatabaseConfig struct {
	StoreBackend   string
	URL            string
	AutoMigrate    bool
	MigrationsPath string
	MaxConns       int32
}

type CheckoutConfig struct {
	InventoryStrategy string
	AutoCapture       bool
}

type PaymentsConfig struct {
	WebhookSecret string
}

type AdminConfig struct {
	Token string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

const (
	defaultHTTPPort          = 8080
	defaultMetricsPath       = "/metrics"
	defaultShutdownGrace     = 15
	defaultMigrationsPath    = "migrations"
	defaultAutoMigrate       = true
	defaultMaxConns          = 25
	defaultStoreBackend      = BackendPostgres
	defaultInventoryStrategy = "transactional"
	defaultSessionTTL        = 30 * time.Minute
	defaultSweepInterval     = time.Minute
	defaultServiceName       = "storefront-api"
	defaultServiceVersion    = "0.1.0"
	defaultEnvironment       = "development"
	defaultLogLevel          = "info"
	defaultOTelSampleRate    = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
// A .env file in the working directory is loaded first; variables already present in
// the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	sessionCfg, err := loadSessionConfig()
	if err != nil {
		return nil, fmt.Errorf("loading session config: %w", err)
	}

	serviceCfg := loadServiceConfig()

	return &Config{
		HTTP:      httpCfg,
		Database:  dbCfg,
		Checkout:  loadCheckoutConfig(serviceCfg.Environment),
		Payments:  PaymentsConfig{WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET")},
		Admin:     AdminConfig{Token: os.Getenv("ADMIN_API_TOKEN")},
		Session:   sessionCfg,
		Telemetry: telCfg,
		Service:   serviceCfg,
	}, nil
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Service.Environment, "production")
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:           port,
		MetricsPath:    getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace:  shutdownGrace,
		AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		SecureCookies:  getBoolEnv("SESSION_SECURE_COOKIES", false),
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORE_BACKEND", defaultStoreBackend))
	if backend != BackendMemory && backend != BackendPostgres {
		return DatabaseConfig{}, fmt.Errorf("invalid STORE_BACKEND %q", backend)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" && backend == BackendPostgres {
		databaseURL = buildDatabaseURL()
	}

	maxConns, err := getIntEnv("DB_MAX_CONNS", defaultMaxConns)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		StoreBackend:   backend,
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
		MaxConns:       int32(maxConns),
	}, nil
}

func loadCheckoutConfig(environment string) CheckoutConfig {
	return CheckoutConfig{
		InventoryStrategy: getEnvOrDefault("CHECKOUT_INVENTORY_STRATEGY", defaultInventoryStrategy),
		AutoCapture:       getBoolEnv("CHECKOUT_AUTO_CAPTURE", !strings.EqualFold(environment, "production")),
	}
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := getDurationEnv("SESSION_TTL", defaultSessionTTL)
	if err != nil {
		return SessionConfig{}, err
	}
	sweep, err := getDurationEnv("SESSION_SWEEP_INTERVAL", defaultSweepInterval)
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{TTL: ttl, SweepInterval: sweep}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", "postgres"),
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_NAME", "storefront"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return parsed, nil
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
