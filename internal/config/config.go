// Package config builds the application configuration from three layers,
// highest precedence last: an optional .env file, an optional YAML file named
// by WEATHER_CONFIG_FILE, and WEATHER_-prefixed environment variables where
// "__" separates sections (WEATHER_GOOGLE__MAPS_API_KEY -> google.maps_api_key).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "WEATHER_"
	configFileEnv = "WEATHER_CONFIG_FILE"
)

// HTTP holds server settings.  RateLimitMax of zero disables the limiter.
type HTTP struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     string        `koanf:"cors_origins"`
	RateLimitMax    int           `koanf:"rate_limit_max" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// Database holds the DSN and pool settings.  An empty URL selects the
// default SQLite file.
type Database struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"min=0"`
	LogQueries      bool          `koanf:"log_queries"`
	SeedFile        string        `koanf:"seed_file"`
}

type Google struct {
	MapsAPIKey    string        `koanf:"maps_api_key"`
	WeatherAPIKey string        `koanf:"weather_api_key"`
	GeocodingURL  string        `koanf:"geocoding_url" validate:"omitempty,url"`
	WeatherURL    string        `koanf:"weather_url" validate:"omitempty,url"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries    int           `koanf:"max_retries" validate:"min=0,max=5"`
}

type Cache struct {
	TTL         time.Duration `koanf:"ttl" validate:"gt=0"`
	Tolerance   float64       `koanf:"tolerance" validate:"gt=0,lte=1"`
	SearchLimit int           `koanf:"search_limit" validate:"min=1,max=100"`
}

type Scheduler struct {
	Enabled         bool          `koanf:"enabled"`
	Interval        time.Duration `koanf:"interval" validate:"gt=0"`
	HistoryMaxAge   time.Duration `koanf:"history_max_age" validate:"min=0"`
	WarmLocationIDs []int64       `koanf:"warm_location_ids" validate:"dive,gt=0"`
	WarmWorkers     int           `koanf:"warm_workers" validate:"min=1"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	File   string `koanf:"file"`
}

type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Google    Google    `koanf:"google"`
	Cache     Cache     `koanf:"cache"`
	Scheduler Scheduler `koanf:"scheduler"`
	Log       Log       `koanf:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     "*",
			RateLimitMax:    10,
			RateLimitWindow: 10 * time.Second,
		},
		Database: Database{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Google: Google{
			Timeout: 10 * time.Second,
		},
		Cache: Cache{
			TTL:         5 * time.Minute,
			Tolerance:   0.01,
			SearchLimit: 10,
		},
		Scheduler: Scheduler{
			Enabled:       true,
			Interval:      15 * time.Minute,
			HistoryMaxAge: 7 * 24 * time.Hour,
			WarmWorkers:   4,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env, the optional YAML file and environment overrides, then
// validates the result.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			// env values arrive as strings; lists are comma-separated
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// unprefixed names kept for existing deployments
	if cfg.Google.MapsAPIKey == "" {
		cfg.Google.MapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if cfg.Google.WeatherAPIKey == "" {
		cfg.Google.WeatherAPIKey = os.Getenv("GOOGLE_WEATHER_API_KEY")
	}
	if cfg.Google.WeatherAPIKey == "" {
		cfg.Google.WeatherAPIKey = cfg.Google.MapsAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Scheduler.HistoryMaxAge > 0 && c.Scheduler.HistoryMaxAge < c.Cache.TTL {
		return errors.New("invalid config: scheduler.history_max_age must be 0 or at least cache.ttl")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
