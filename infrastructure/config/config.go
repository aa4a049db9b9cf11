// Package config loads application settings from defaults, an optional YAML
// file and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreDriverSupabase = "supabase"
	StoreDriverMemory   = "memory"
)

// Insight providers
const (
	InsightProviderGroq = "groq"
	InsightProviderMock = "mock"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	SiteURL       string

	// Supabase
	SupabaseURL       string
	SupabaseKey       string
	SupabaseJWTSecret string
	EntriesTable      string

	// Insight generation
	InsightProvider string
	GroqAPIKey      string
	GroqEndpoint    string
	GroqModel       string

	// Stores
	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string

	// Timeouts
	InsightTimeout time.Duration
	StoreTimeout   time.Duration
	AuthTimeout    time.Duration

	// Rate limiting
	LoginRatePerMinute   int
	JournalRatePerMinute int

	// Outbox
	OutboxInterval    time.Duration
	OutboxMaxAttempts int

	// Logging
	LogLevel   string
	ConfigFile string

	// Observability and HTTP
	EnableTracing      bool
	OTLPEndpoint       string
	CORSAllowedOrigins []string

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP; only safe behind a proxy that overwrites them
	TrustProxyHeaders bool
}

// fileConfig is the YAML shape; it only carries non-secret tunables
type fileConfig struct {
	ServerAddress        string   `yaml:"server_address"`
	Environment          string   `yaml:"environment"`
	SiteURL              string   `yaml:"site_url"`
	LogLevel             string   `yaml:"log_level"`
	EntriesTable         string   `yaml:"entries_table"`
	GroqModel            string   `yaml:"groq_model"`
	MongoDatabase        string   `yaml:"mongo_database"`
	InsightTimeout       string   `yaml:"insight_timeout"`
	StoreTimeout         string   `yaml:"store_timeout"`
	AuthTimeout          string   `yaml:"auth_timeout"`
	LoginRatePerMinute   int      `yaml:"login_rate_per_minute"`
	JournalRatePerMinute int      `yaml:"journal_rate_per_minute"`
	EnableTracing        *bool    `yaml:"enable_tracing"`
	OTLPEndpoint         string   `yaml:"otlp_endpoint"`
	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins"`
	TrustProxyHeaders    *bool    `yaml:"trust_proxy_headers"`
	Outbox               struct {
		Interval    string `yaml:"interval"`
		MaxAttempts int    `yaml:"max_attempts"`
	} `yaml:"outbox"`
}

// Defaults returns the configuration used before any source is applied
func Defaults() *Config {
	return &Config{
		ServerAddress:        ":8080",
		Environment:          "development",
		SiteURL:              "http://localhost:8080",
		EntriesTable:         "journal_entries",
		InsightProvider:      InsightProviderGroq,
		GroqEndpoint:         "https://api.groq.com/openai/v1/chat/completions",
		GroqModel:            "llama-3.3-70b-versatile",
		StoreDriver:          StoreDriverSupabase,
		MongoURI:             "mongodb://localhost:27017",
		MongoDatabase:        "mindtrack",
		InsightTimeout:       30 * time.Second,
		StoreTimeout:         10 * time.Second,
		AuthTimeout:          10 * time.Second,
		LoginRatePerMinute:   5,
		JournalRatePerMinute: 30,
		OutboxInterval:       5 * time.Second,
		OutboxMaxAttempts:    5,
		LogLevel:             "info",
		CORSAllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
	}
}

// LoadConfig loads .env (if present), the CONFIG_FILE YAML (if set) and
// the environment, then validates the result.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadLogLevel returns the log_level set in a YAML config file
func ReadLogLevel(path string) (string, error) {
	fc, err := readFile(path)
	if err != nil {
		return "", err
	}
	return fc.LogLevel, nil
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) applyFile(path string) error {
	fc, err := readFile(path)
	if err != nil {
		return err
	}

	setString(&c.ServerAddress, fc.ServerAddress)
	setString(&c.Environment, fc.Environment)
	setString(&c.SiteURL, fc.SiteURL)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.EntriesTable, fc.EntriesTable)
	setString(&c.GroqModel, fc.GroqModel)
	setString(&c.MongoDatabase, fc.MongoDatabase)
	setString(&c.OTLPEndpoint, fc.OTLPEndpoint)
	if fc.LoginRatePerMinute > 0 {
		c.LoginRatePerMinute = fc.LoginRatePerMinute
	}
	if fc.JournalRatePerMinute > 0 {
		c.JournalRatePerMinute = fc.JournalRatePerMinute
	}
	if fc.Outbox.MaxAttempts > 0 {
		c.OutboxMaxAttempts = fc.Outbox.MaxAttempts
	}
	if fc.EnableTracing != nil {
		c.EnableTracing = *fc.EnableTracing
	}
	if fc.TrustProxyHeaders != nil {
		c.TrustProxyHeaders = *fc.TrustProxyHeaders
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"insight_timeout", fc.InsightTimeout, &c.InsightTimeout},
		{"store_timeout", fc.StoreTimeout, &c.StoreTimeout},
		{"auth_timeout", fc.AuthTimeout, &c.AuthTimeout},
		{"outbox.interval", fc.Outbox.Interval, &c.OutboxInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.name, path, err)
		}
		*d.target = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.SiteURL = strings.TrimRight(getEnv("SITE_URL", c.SiteURL), "/")

	c.SupabaseURL = getEnv("SUPABASE_URL", getEnv("NEXT_PUBLIC_SUPABASE_URL", c.SupabaseURL))
	c.SupabaseKey = getEnv("SUPABASE_KEY", getEnv("NEXT_PUBLIC_SUPABASE_ANON_KEY", c.SupabaseKey))
	c.SupabaseJWTSecret = getEnv("SUPABASE_JWT_SECRET", c.SupabaseJWTSecret)
	c.EntriesTable = getEnv("ENTRIES_TABLE", c.EntriesTable)

	c.InsightProvider = strings.ToLower(getEnv("INSIGHT_PROVIDER", c.InsightProvider))
	c.GroqAPIKey = getEnv("GROK_API_KEY", getEnv("GROQ_API_KEY", c.GroqAPIKey))
	c.GroqEndpoint = getEnv("GROQ_ENDPOINT", c.GroqEndpoint)
	c.GroqModel = getEnv("GROQ_MODEL", c.GroqModel)

	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGODB_DATABASE", c.MongoDatabase)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	c.LoginRatePerMinute = getEnvInt("LOGIN_RATE_PER_MINUTE", c.LoginRatePerMinute)
	c.JournalRatePerMinute = getEnvInt("JOURNAL_RATE_PER_MINUTE", c.JournalRatePerMinute)
	c.OutboxMaxAttempts = getEnvInt("OUTBOX_MAX_ATTEMPTS", c.OutboxMaxAttempts)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	var err error
	if c.InsightTimeout, err = getEnvDuration("INSIGHT_TIMEOUT", c.InsightTimeout); err != nil {
		return err
	}
	if c.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", c.StoreTimeout); err != nil {
		return err
	}
	if c.AuthTimeout, err = getEnvDuration("AUTH_TIMEOUT", c.AuthTimeout); err != nil {
		return err
	}
	if c.OutboxInterval, err = getEnvDuration("OUTBOX_INTERVAL", c.OutboxInterval); err != nil {
		return err
	}
	return nil
}

// Validate checks that everything required for the selected drivers is set
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverSupabase, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.InsightProvider {
	case InsightProviderGroq, InsightProviderMock:
	default:
		return fmt.Errorf("unsupported INSIGHT_PROVIDER %q", c.InsightProvider)
	}

	// The identity provider is Supabase whatever the store driver is, so
	// only a fully local run may omit it.
	if c.StoreDriver == StoreDriverSupabase || c.IsProduction() {
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_KEY is required")
		}
	}
	if c.InsightProvider == InsightProviderGroq && c.GroqAPIKey == "" {
		return fmt.Errorf("GROK_API_KEY is required")
	}

	if _, err := url.ParseRequestURI(c.SiteURL); err != nil {
		return fmt.Errorf("invalid SITE_URL %q: %w", c.SiteURL, err)
	}
	if c.InsightTimeout <= 0 || c.StoreTimeout <= 0 || c.AuthTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.LoginRatePerMinute <= 0 || c.JournalRatePerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasIdentityProvider reports whether Supabase auth is configured
func (c *Config) HasIdentityProvider() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// CallbackURL is where magic links send the browser back to
func (c *Config) CallbackURL() string {
	return c.SiteURL + "/auth/callback"
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
