// Package config handles YAML configuration loading with environment variable
// expansion and ARCSCOUT_* overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v3"
)

// Config is the top-level client configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	HTTP      HTTPConfig      `yaml:"http"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig locates the game-reference API.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"ARCSCOUT_API_BASE_URL"`
	PageSize  int    `yaml:"page_size"  env:"ARCSCOUT_API_PAGE_SIZE"`
	UserAgent string `yaml:"user_agent" env:"ARCSCOUT_API_USER_AGENT"`
}

// HTTPConfig tunes the outbound transport.
type HTTPConfig struct {
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" env:"ARCSCOUT_HTTP_MAX_IDLE_CONNS_PER_HOST"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"       env:"ARCSCOUT_HTTP_IDLE_CONN_TIMEOUT"`
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout"   env:"ARCSCOUT_HTTP_TLS_HANDSHAKE_TIMEOUT"`
	DNSCache            bool          `yaml:"dns_cache"               env:"ARCSCOUT_HTTP_DNS_CACHE"`
	DNSRefreshInterval  time.Duration `yaml:"dns_refresh_interval"    env:"ARCSCOUT_HTTP_DNS_REFRESH_INTERVAL"`
}

// BreakerConfig holds per-endpoint circuit breaker settings.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"         env:"ARCSCOUT_BREAKER_ENABLED"`
	ErrorThreshold float64       `yaml:"error_threshold" env:"ARCSCOUT_BREAKER_ERROR_THRESHOLD"`
	MinSamples     int           `yaml:"min_samples"     env:"ARCSCOUT_BREAKER_MIN_SAMPLES"`
	WindowSeconds  int           `yaml:"window_seconds"  env:"ARCSCOUT_BREAKER_WINDOW_SECONDS"`
	OpenTimeout    time.Duration `yaml:"open_timeout"    env:"ARCSCOUT_BREAKER_OPEN_TIMEOUT"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ARCSCOUT_METRICS_ENABLED"`
	Addr    string `yaml:"addr"    env:"ARCSCOUT_METRICS_ADDR"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"     env:"ARCSCOUT_TRACING_ENABLED"`
	Endpoint   string  `yaml:"endpoint"    env:"ARCSCOUT_TRACING_ENDPOINT"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate" env:"ARCSCOUT_TRACING_SAMPLE_RATE"` // 0.0 to 1.0
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"ARCSCOUT_LOG_LEVEL"`  // debug, info, warn, error
	Format string `yaml:"format" env:"ARCSCOUT_LOG_FORMAT"` // text or json
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8000/api",
			PageSize:  50,
			UserAgent: "arcscout",
		},
		HTTP: HTTPConfig{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			DNSCache:            true,
			DNSRefreshInterval:  5 * time.Minute,
		},
		Breaker: BreakerConfig{
			Enabled:        true,
			ErrorThreshold: 0.5,
			MinSamples:     5,
			WindowSeconds:  30,
			OpenTimeout:    15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Addr: "127.0.0.1:9464"},
			Tracing: TracingConfig{Endpoint: "localhost:4317", SampleRate: 1},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty) with ${VAR} expansion, then ARCSCOUT_* overrides. The
// result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize))
	}
	if c.Breaker.Enabled {
		if c.Breaker.ErrorThreshold <= 0 || c.Breaker.ErrorThreshold > 1 {
			errs = append(errs, fmt.Errorf("breaker.error_threshold must be in (0, 1], got %v", c.Breaker.ErrorThreshold))
		}
		if c.Breaker.WindowSeconds <= 0 || c.Breaker.WindowSeconds > 60 {
			errs = append(errs, fmt.Errorf("breaker.window_seconds must be in [1, 60], got %d", c.Breaker.WindowSeconds))
		}
	}
	if c.Telemetry.Metrics.Enabled && c.Telemetry.Metrics.Addr == "" {
		errs = append(errs, errors.New("telemetry.metrics.addr is required when metrics are enabled"))
	}
	if c.Telemetry.Tracing.Enabled && c.Telemetry.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.tracing.endpoint is required when tracing is enabled"))
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
