package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all gateway configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Search   SearchConfig   `mapstructure:"search"`
	Movement MovementConfig `mapstructure:"movement"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Valkey   ValkeyConfig   `mapstructure:"valkey"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// UpstreamConfig points at the offices API consumed by the orchestrator.
type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type GeocoderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SearchConfig carries search defaults: page size, result-page cache TTL and
// the fallback coordinate used when geocoding fails on bootstrap.
type SearchConfig struct {
	PageSize        int     `mapstructure:"page_size"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	DefaultLat      float64 `mapstructure:"default_lat"`
	DefaultLng      float64 `mapstructure:"default_lng"`
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`
	BaseCurrency    string  `mapstructure:"base_currency"`
	TargetCurrency  string  `mapstructure:"target_currency"`
	ShowBestOffice  bool    `mapstructure:"show_best_office"`
}

// MovementConfig is the tunable significance policy for camera moves. The
// defaults were chosen empirically; treat them as policy, not contract.
type MovementConfig struct {
	CenterShiftFraction float64 `mapstructure:"center_shift_fraction"`
	MinShiftMeters      float64 `mapstructure:"min_shift_meters"`
	SizeChangeRatio     float64 `mapstructure:"size_change_ratio"`
	QuietPeriodMs       int     `mapstructure:"quiet_period_ms"`
}

// QuietPeriod returns the debounce window as a duration.
func (m MovementConfig) QuietPeriod() time.Duration {
	return time.Duration(m.QuietPeriodMs) * time.Millisecond
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("upstream.base_url", "http://localhost:4000")
	v.SetDefault("upstream.timeout_seconds", 10)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.timeout_seconds", 5)
	v.SetDefault("search.page_size", 20)
	v.SetDefault("search.cache_ttl_seconds", 60)
	v.SetDefault("search.default_lat", 43.2630)
	v.SetDefault("search.default_lng", -2.9350)
	v.SetDefault("search.default_radius_km", 5.0)
	v.SetDefault("search.base_currency", "EUR")
	v.SetDefault("search.target_currency", "USD")
	v.SetDefault("search.show_best_office", true)
	v.SetDefault("movement.center_shift_fraction", 0.25)
	v.SetDefault("movement.min_shift_meters", 300.0)
	v.SetDefault("movement.size_change_ratio", 0.15)
	v.SetDefault("movement.quiet_period_ms", 400)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CAMBIOMAP_UPSTREAM_BASE_URL → upstream.base_url
	v.SetEnvPrefix("CAMBIOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Search.PageSize <= 0 || c.Search.PageSize > 100 {
		errs = append(errs, fmt.Sprintf("search.page_size must be 1-100, got %d", c.Search.PageSize))
	}
	if c.Movement.CenterShiftFraction <= 0 || c.Movement.CenterShiftFraction >= 1 {
		errs = append(errs, "movement.center_shift_fraction must be in (0,1)")
	}
	if c.Movement.MinShiftMeters <= 0 {
		errs = append(errs, "movement.min_shift_meters must be positive")
	}
	if c.Movement.SizeChangeRatio <= 0 || c.Movement.SizeChangeRatio >= 1 {
		errs = append(errs, "movement.size_change_ratio must be in (0,1)")
	}
	if c.Movement.QuietPeriodMs < 0 {
		errs = append(errs, "movement.quiet_period_ms must not be negative")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
