package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > .env file > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string

	StorageDriver string
	DatabasePath  string

	ProductsURL        string
	FetchTimeout       time.Duration
	FetchRetries       int
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
	CatalogTTL         time.Duration
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Storage              yamlStorage   `yaml:"storage"`
	Products             yamlProducts  `yaml:"products"`
}

type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlStorage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type yamlProducts struct {
	URL                string `yaml:"url"`
	FetchTimeout       string `yaml:"fetch_timeout"`
	Retries            *int   `yaml:"retries"`
	BreakerFailures    *int   `yaml:"breaker_failures"`
	BreakerOpenTimeout string `yaml:"breaker_open_timeout"`
	CacheTTL           string `yaml:"cache_ttl"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	StorageDriver  *string
	DatabasePath   *string
	ProductsURL    *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > .env file > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	dotenv, err := readEnvFile(overrides)
	if err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	applyEnvConfig(&cfg, envLookup(dotenv))

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             "info",
		StorageDriver:        StorageMemory,
		DatabasePath:         "plantevern.db",
		FetchTimeout:         10 * time.Second,
		FetchRetries:         3,
		BreakerFailures:      5,
		BreakerOpenTimeout:   30 * time.Second,
		CatalogTTL:           time.Hour,
	}
}

// readEnvFile parses the .env file without touching the process environment.
// An explicitly requested file must exist; the default one is optional.
func readEnvFile(overrides *CLIOverrides) (map[string]string, error) {
	path := defaultEnvFile
	explicit := overrides != nil && overrides.EnvFile != ""
	if explicit {
		path = overrides.EnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return values, nil
}

// envLookup resolves a key from the process environment first and the .env
// values second.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
		return strings.TrimSpace(dotenv[key])
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct. Keys that
// are absent from the file leave the current value untouched.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"products.fetch_timeout", yamlCfg.Products.FetchTimeout, &cfg.FetchTimeout},
		{"products.breaker_open_timeout", yamlCfg.Products.BreakerOpenTimeout, &cfg.BreakerOpenTimeout},
		{"products.cache_ttl", yamlCfg.Products.CacheTTL, &cfg.CatalogTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Storage.Driver != "" {
		cfg.StorageDriver = yamlCfg.Storage.Driver
	}
	if yamlCfg.Storage.Path != "" {
		cfg.DatabasePath = yamlCfg.Storage.Path
	}

	if yamlCfg.Products.URL != "" {
		cfg.ProductsURL = yamlCfg.Products.URL
	}
	if yamlCfg.Products.Retries != nil {
		cfg.FetchRetries = *yamlCfg.Products.Retries
	}
	if yamlCfg.Products.BreakerFailures != nil {
		cfg.BreakerFailures = *yamlCfg.Products.BreakerFailures
	}

	return nil
}

// applyEnvConfig applies environment variable configuration. Malformed values
// are ignored and the previous value is kept.
func applyEnvConfig(cfg *Config, getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := getenv("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := getenv("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if raw := getenv("ENABLE_REQUEST_LOGGING"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnableRequestLogging = value
		}
	}

	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if driver := getenv("STORAGE_DRIVER"); driver != "" {
		cfg.StorageDriver = driver
	}
	if path := getenv("DATABASE_PATH"); path != "" {
		cfg.DatabasePath = path
	}
	if url := getenv("PRODUCTS_URL"); url != "" {
		cfg.ProductsURL = url
	}

	envDuration(getenv, "PRODUCTS_FETCH_TIMEOUT", &cfg.FetchTimeout)
	envDuration(getenv, "PRODUCTS_BREAKER_OPEN_TIMEOUT", &cfg.BreakerOpenTimeout)
	envDuration(getenv, "CATALOG_CACHE_TTL", &cfg.CatalogTTL)
	envInt(getenv, "PRODUCTS_FETCH_RETRIES", &cfg.FetchRetries)
	envInt(getenv, "PRODUCTS_BREAKER_FAILURES", &cfg.BreakerFailures)
}

func envDuration(getenv func(string) string, key string, target *time.Duration) {
	if raw := getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			*target = d
		}
	}
}

func envInt(getenv func(string) string, key string, target *int) {
	if raw := getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			*target = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.StorageDriver != nil && *overrides.StorageDriver != "" {
		cfg.StorageDriver = *overrides.StorageDriver
	}
	if overrides.DatabasePath != nil && *overrides.DatabasePath != "" {
		cfg.DatabasePath = *overrides.DatabasePath
	}
	if overrides.ProductsURL != nil && *overrides.ProductsURL != "" {
		cfg.ProductsURL = *overrides.ProductsURL
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(cfg.DatabasePath) == "" {
			return fmt.Errorf("sqlite storage requires a database path")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", cfg.StorageDriver, StorageMemory, StorageSQLite)
	}
	if cfg.FetchRetries < 0 || cfg.BreakerFailures < 0 {
		return fmt.Errorf("products retries and breaker failures must be >= 0")
	}
	if cfg.CatalogTTL < 0 || cfg.FetchTimeout < 0 {
		return fmt.Errorf("products timeouts must be >= 0")
	}
	return nil
}
