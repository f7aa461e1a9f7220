// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server          ServerConfig          `koanf:"server"`
	Database        DatabaseConfig        `koanf:"database"`
	Redis           RedisConfig           `koanf:"redis"`
	Cache           CacheConfig           `koanf:"cache"`
	Generation      GenerationConfig      `koanf:"generation"`
	Catalog         CatalogConfig         `koanf:"catalog"`
	Recommendations RecommendationsConfig `koanf:"recommendations"`
	Logging         LoggingConfig         `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// GenerateRateLimit is generation requests per client per GenerateRateWindow. Zero disables it.
	GenerateRateLimit  int           `koanf:"generate_rate_limit" validate:"min=0"`
	GenerateRateWindow time.Duration `koanf:"generate_rate_window" validate:"gt=0"`
	CORSOrigins        []string      `koanf:"cors_origins" validate:"dive,url"`
}

type DatabaseConfig struct {
	Driver     string `koanf:"driver" validate:"oneof=postgres sqlite"`
	URL        string `koanf:"url"`
	PoolSize   int    `koanf:"pool_size" validate:"min=1"`
	SQLitePath string `koanf:"sqlite_path"`
	// Seed loads demo preferences into an empty database on startup.
	Seed bool `koanf:"seed"`
}

type RedisConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

type CacheConfig struct {
	TTL  time.Duration `koanf:"ttl" validate:"gt=0"`
	Size int           `koanf:"size" validate:"min=1"`
}

type GenerationConfig struct {
	Provider       string        `koanf:"provider" validate:"oneof=openai gemini"`
	APIKey         string        `koanf:"api_key" validate:"required"`
	Model          string        `koanf:"model"`
	BaseURL        string        `koanf:"base_url" validate:"omitempty,url"`
	Count          int           `koanf:"count" validate:"min=1,max=20"`
	MaxAttempts    int           `koanf:"max_attempts" validate:"min=1,max=10"`
	BaseDelay      time.Duration `koanf:"base_delay" validate:"gt=0"`
	MaxDelay       time.Duration `koanf:"max_delay" validate:"gt=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	// APIKey is optional. Without it upcoming matches and posters are disabled.
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url" validate:"url"`
	ImageBaseURL   string        `koanf:"image_base_url" validate:"url"`
	Language       string        `koanf:"language"`
	Region         string        `koanf:"region"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	MaxAttempts    int           `koanf:"max_attempts" validate:"min=1,max=10"`
	RPS            float64       `koanf:"rps" validate:"gt=0"`
	Burst          int           `koanf:"burst" validate:"min=1"`
	PosterCacheTTL time.Duration `koanf:"poster_cache_ttl" validate:"gt=0"`
}

type RecommendationsConfig struct {
	Policy       string `koanf:"policy" validate:"oneof=append replace"`
	DefaultLimit int    `koanf:"default_limit" validate:"min=1"`
	MaxLimit     int    `koanf:"max_limit" validate:"min=1,max=500"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("koanf"); name != "" {
			return name
		}
		return fld.Name
	})

	var errs []error
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Value()))
		}
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("database.sqlite_path is required for the sqlite driver"))
		}
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when redis is enabled"))
	}
	if c.Generation.MaxDelay < c.Generation.BaseDelay {
		errs = append(errs, errors.New("generation.max_delay must not be below generation.base_delay"))
	}
	if c.Recommendations.DefaultLimit > c.Recommendations.MaxLimit {
		errs = append(errs, errors.New("recommendations.default_limit must not exceed recommendations.max_limit"))
	}
	return errors.Join(errs...)
}
