// Package config loads the server configuration from an optional YAML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/s1natex/todo-web-GO/internal/api"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"API_URL" env-default:"http://127.0.0.1:5000"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret" env:"SESSION_SECRET"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"todo_session"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"168h"`
	Store      string        `yaml:"store" env:"SESSION_STORE" env-default:"memory"`
	SQLitePath string        `yaml:"sqlite_path" env:"SESSION_SQLITE_PATH" env-default:"sessions.db"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATELIMIT_RPS" env-default:"1"`
	Burst int     `yaml:"burst" env:"RATELIMIT_BURST" env-default:"5"`
}

type TracingConfig struct {
	Exporter    string `yaml:"exporter" env:"TRACING_EXPORTER" env-default:"none"`
	Endpoint    string `yaml:"endpoint" env:"TRACING_ENDPOINT" env-default:"http://localhost:4318"`
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME" env-default:"todo-web"`
}

// Load reads path when it is set, then applies the environment on top.
// Without a path only the environment and defaults are used. The result is
// not validated; commands that serve call Validate.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config not read: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Session.Secret) == "" {
		errs = append(errs, errors.New("session.secret is required"))
	}
	switch c.Session.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("session.sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store: unknown store %q", c.Session.Store))
	}
	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter))
	}
	if _, err := api.ParseBaseURL(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	return errors.Join(errs...)
}
