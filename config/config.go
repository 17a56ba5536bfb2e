package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding an optional YAML
// config file. Environment variables override values from the file.
const ConfigFileEnv = "WEBEXTRACT_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Tiers     TierConfig      `yaml:"tiers"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Batch     BatchConfig     `yaml:"batch"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// MaxBrowsers caps concurrent browser fetches process-wide.
	MaxBrowsers int `yaml:"maxBrowsers"` // default: 3

	// Proxy is the proxy URL for browser traffic.
	Proxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"noSandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// Stealth injects anti-detection scripts when page scripts run.
	Stealth bool `yaml:"stealth"` // default: true
}

// TierConfig controls the escalation ladder.
type TierConfig struct {
	HTTPTimeout        time.Duration `yaml:"httpTimeout"`        // default: 10s
	ReadabilityTimeout time.Duration `yaml:"readabilityTimeout"` // default: 15s
	BrowserTimeout     time.Duration `yaml:"browserTimeout"`     // default: 30s
	BrowserJSTimeout   time.Duration `yaml:"browserJSTimeout"`   // default: 30s

	// ReadabilityWorkers sizes the tier 2 worker pool.
	ReadabilityWorkers int `yaml:"readabilityWorkers"` // default: 4

	// DefaultMaxTier applies when a caller does not pick one.
	DefaultMaxTier int `yaml:"defaultMaxTier"` // default: 4

	// BlockedResourceTypes lists resource types blocked when scripts run.
	// Scripts are always blocked when they are disabled.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blockedResourceTypes"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string `yaml:"apiKeys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `yaml:"rps"` // default: 5

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 10
}

// BatchConfig controls the batch endpoint.
type BatchConfig struct {
	MaxURLs     int `yaml:"maxURLs"`     // default: 50
	Concurrency int `yaml:"concurrency"` // default: 8
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless:    true,
			MaxBrowsers: 3,
			Stealth:     true,
		},
		Tiers: TierConfig{
			HTTPTimeout:          10 * time.Second,
			ReadabilityTimeout:   15 * time.Second,
			BrowserTimeout:       30 * time.Second,
			BrowserJSTimeout:     30 * time.Second,
			ReadabilityWorkers:   4,
			DefaultMaxTier:       4,
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
		Batch: BatchConfig{
			MaxURLs:     50,
			Concurrency: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named
// by WEBEXTRACT_CONFIG if set, then WEBEXTRACT_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. Keys missing from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse yaml %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("WEBEXTRACT_HOST", c.Server.Host)
	c.Server.Port = envIntOr("WEBEXTRACT_PORT", c.Server.Port)
	c.Server.Mode = envOr("WEBEXTRACT_MODE", c.Server.Mode)

	c.Browser.Headless = envBoolOr("WEBEXTRACT_HEADLESS", c.Browser.Headless)
	c.Browser.MaxBrowsers = envIntOr("WEBEXTRACT_MAX_BROWSERS", c.Browser.MaxBrowsers)
	c.Browser.Proxy = envOr("WEBEXTRACT_PROXY", c.Browser.Proxy)
	c.Browser.NoSandbox = envBoolOr("WEBEXTRACT_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("WEBEXTRACT_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Stealth = envBoolOr("WEBEXTRACT_STEALTH", c.Browser.Stealth)

	c.Tiers.HTTPTimeout = envDurationOr("WEBEXTRACT_HTTP_TIMEOUT", c.Tiers.HTTPTimeout)
	c.Tiers.ReadabilityTimeout = envDurationOr("WEBEXTRACT_READABILITY_TIMEOUT", c.Tiers.ReadabilityTimeout)
	c.Tiers.BrowserTimeout = envDurationOr("WEBEXTRACT_BROWSER_TIMEOUT", c.Tiers.BrowserTimeout)
	c.Tiers.BrowserJSTimeout = envDurationOr("WEBEXTRACT_BROWSER_JS_TIMEOUT", c.Tiers.BrowserJSTimeout)
	c.Tiers.ReadabilityWorkers = envIntOr("WEBEXTRACT_READABILITY_WORKERS", c.Tiers.ReadabilityWorkers)
	c.Tiers.DefaultMaxTier = envIntOr("WEBEXTRACT_MAX_TIER", c.Tiers.DefaultMaxTier)
	c.Tiers.BlockedResourceTypes = envSliceOr("WEBEXTRACT_BLOCKED_RESOURCES", c.Tiers.BlockedResourceTypes)

	c.Auth.Enabled = envBoolOr("WEBEXTRACT_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("WEBEXTRACT_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("WEBEXTRACT_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("WEBEXTRACT_RATE_BURST", c.RateLimit.Burst)

	c.Batch.MaxURLs = envIntOr("WEBEXTRACT_BATCH_MAX_URLS", c.Batch.MaxURLs)
	c.Batch.Concurrency = envIntOr("WEBEXTRACT_BATCH_CONCURRENCY", c.Batch.Concurrency)

	c.Log.Level = envOr("WEBEXTRACT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("WEBEXTRACT_LOG_FORMAT", c.Log.Format)
}

// Validate reports settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Tiers.DefaultMaxTier < 1 || c.Tiers.DefaultMaxTier > 4 {
		errs = append(errs, fmt.Errorf("tiers.defaultMaxTier must be 1-4, got %d", c.Tiers.DefaultMaxTier))
	}
	if c.Browser.MaxBrowsers < 1 {
		errs = append(errs, fmt.Errorf("browser.maxBrowsers must be positive, got %d", c.Browser.MaxBrowsers))
	}
	if c.Tiers.ReadabilityWorkers < 1 {
		errs = append(errs, fmt.Errorf("tiers.readabilityWorkers must be positive, got %d", c.Tiers.ReadabilityWorkers))
	}
	for name, d := range map[string]time.Duration{
		"httpTimeout":        c.Tiers.HTTPTimeout,
		"readabilityTimeout": c.Tiers.ReadabilityTimeout,
		"browserTimeout":     c.Tiers.BrowserTimeout,
		"browserJSTimeout":   c.Tiers.BrowserJSTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("tiers.%s must be positive, got %s", name, d))
		}
	}
	if c.Batch.MaxURLs < 1 || c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch limits must be positive, got maxURLs=%d concurrency=%d",
			c.Batch.MaxURLs, c.Batch.Concurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
