package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultSearchMaxNodes = 1_000_000
	defaultSearchTimeout  = 2 * time.Second
	defaultCacheTTL       = 10 * time.Minute
	defaultCacheMaxMB     = 64
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `validate:"required"`
	DeliveryOptionsPath  string        `validate:"required"`
	ShutdownGracePeriod  time.Duration `validate:"gte=0"`
	ReadHeaderTimeout    time.Duration `validate:"gte=0"`
	WriteTimeout         time.Duration `validate:"gte=0"`
	IdleTimeout          time.Duration `validate:"gte=0"`
	EnableRequestLogging bool
	RateLimitRPS         float64       `validate:"gte=0"`
	RateLimitBurst       int           `validate:"gte=0"`
	SearchMaxNodes       int           `validate:"gte=0"`
	SearchTimeout        time.Duration `validate:"gte=0"`
	MetricsEnabled       bool
	// CacheTTL of zero disables the split result cache.
	CacheTTL   time.Duration `validate:"gte=0"`
	CacheMaxMB int           `validate:"gte=0"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	DeliveryOptions      string        `yaml:"delivery_options"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Search               yamlSearch    `yaml:"search"`
	Metrics              yamlMetrics   `yaml:"metrics"`
	Cache                yamlCache     `yaml:"cache"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlSearch struct {
	MaxNodes *int   `yaml:"max_nodes"`
	Timeout  string `yaml:"timeout"`
}

type yamlMetrics struct {
	Enabled *bool `yaml:"enabled"`
}

type yamlCache struct {
	TTL   string `yaml:"ttl"`
	MaxMB *int   `yaml:"max_mb"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile      string
	Port            *string
	DeliveryOptions *string
	RateLimitRPS    *float64
	RateLimitBurst  *int
	SearchMaxNodes  *int
	SearchTimeout   *time.Duration
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Environment first so that the YAML file can override it.
	applyEnvConfig(&cfg)

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
		SearchMaxNodes:       defaultSearchMaxNodes,
		SearchTimeout:        defaultSearchTimeout,
		MetricsEnabled:       true,
		CacheTTL:             defaultCacheTTL,
		CacheMaxMB:           defaultCacheMaxMB,
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

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.DeliveryOptions != "" {
		cfg.DeliveryOptionsPath = yamlCfg.DeliveryOptions
	}

	durations := []struct {
		key   string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"search.timeout", yamlCfg.Search.Timeout, &cfg.SearchTimeout},
		{"cache.ttl", yamlCfg.Cache.TTL, &cfg.CacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.field = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Search.MaxNodes != nil {
		cfg.SearchMaxNodes = *yamlCfg.Search.MaxNodes
	}

	if yamlCfg.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *yamlCfg.Metrics.Enabled
	}

	if yamlCfg.Cache.MaxMB != nil {
		cfg.CacheMaxMB = *yamlCfg.Cache.MaxMB
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if path := strings.TrimSpace(os.Getenv("DELIVERY_OPTIONS_FILE")); path != "" {
		cfg.DeliveryOptionsPath = path
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if nodes := strings.TrimSpace(os.Getenv("SEARCH_MAX_NODES")); nodes != "" {
		if value, err := strconv.Atoi(nodes); err == nil && value >= 0 {
			cfg.SearchMaxNodes = value
		}
	}

	if timeout := strings.TrimSpace(os.Getenv("SEARCH_TIMEOUT")); timeout != "" {
		if value, err := time.ParseDuration(timeout); err == nil && value >= 0 {
			cfg.SearchTimeout = value
		}
	}

	if enabled := strings.TrimSpace(os.Getenv("METRICS_ENABLED")); enabled != "" {
		if value, err := strconv.ParseBool(enabled); err == nil {
			cfg.MetricsEnabled = value
		}
	}

	if ttl := strings.TrimSpace(os.Getenv("CACHE_TTL")); ttl != "" {
		if value, err := time.ParseDuration(ttl); err == nil && value >= 0 {
			cfg.CacheTTL = value
		}
	}

	if size := strings.TrimSpace(os.Getenv("CACHE_MAX_MB")); size != "" {
		if value, err := strconv.Atoi(size); err == nil && value >= 0 {
			cfg.CacheMaxMB = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.DeliveryOptions != nil && *overrides.DeliveryOptions != "" {
		cfg.DeliveryOptionsPath = *overrides.DeliveryOptions
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.SearchMaxNodes != nil && *overrides.SearchMaxNodes >= 0 {
		cfg.SearchMaxNodes = *overrides.SearchMaxNodes
	}

	if overrides.SearchTimeout != nil && *overrides.SearchTimeout >= 0 {
		cfg.SearchTimeout = *overrides.SearchTimeout
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	cfg.DeliveryOptionsPath = strings.TrimSpace(cfg.DeliveryOptionsPath)

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Errorf("%s is required", fe.Field())
		}
		return fmt.Errorf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("validate config: %w", err)
}
