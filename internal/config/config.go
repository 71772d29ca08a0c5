package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CRICKET_"

// Config is the server configuration, read from CRICKET_* environment variables
type Config struct {
	HTTP    HTTPConfig    `envPrefix:"HTTP_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	DB      DBConfig      `envPrefix:"DB_"`
	Auth    AuthConfig    `envPrefix:"AUTH_"`

	AccessCodeTTL  time.Duration `env:"ACCESS_CODE_TTL" envDefault:"168h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	StatsCacheSize int           `env:"STATS_CACHE_SIZE" envDefault:"1024"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Host            string        `env:"HOST" envDefault:""`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
}

type StorageConfig struct {
	// Type is one of memory, redis, postgres or sqlite
	Type string `env:"TYPE" envDefault:"memory"`
}

type RedisConfig struct {
	URL          string        `env:"URL" envDefault:"redis://localhost:6379/0"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

type DBConfig struct {
	DSN          string `env:"DSN" envDefault:"file:cricket.db?_pragma=busy_timeout(5000)"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"2"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AdminUsername string        `env:"ADMIN_USERNAME"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads configuration from the given variables instead of the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "redis", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid storage type %q: must be memory, redis, postgres or sqlite", c.Storage.Type)
	}
	if c.AccessCodeTTL <= 0 {
		return fmt.Errorf("access code TTL must be positive, got %s", c.AccessCodeTTL)
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("admin username and password must be set together")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
