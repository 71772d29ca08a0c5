package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/crickettalent/internal/dependencies/clock"
	"github.com/mcoot/crickettalent/internal/dependencies/random"
	"github.com/mcoot/crickettalent/internal/services/achievement"
	"github.com/mcoot/crickettalent/internal/services/auth"
	"github.com/mcoot/crickettalent/internal/services/linking"
	"github.com/mcoot/crickettalent/internal/services/stats"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/storage/memory"
	redisstorage "github.com/mcoot/crickettalent/internal/storage/redis"
	"github.com/mcoot/crickettalent/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService     *auth.Service
	LinkRegistry    *linking.Registry
	Workflow        *achievement.Workflow
	StatsAggregator *stats.Aggregator
	Sweeper         *linking.Sweeper

	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// Zero fields fall back to auth.DefaultConfig()
	AuthConfig auth.Config
	// LinkingConfig holds access code settings (optional)
	LinkingConfig linking.Config
	// SweepInterval is how often expired codes are purged; zero disables the sweeper
	SweepInterval time.Duration
	// StatsCacheSize bounds the stats summary cache; zero disables caching
	StatsCacheSize int
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "postgres" or "sqlite")
	SQLConfig *sqlstore.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closer, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), cfg, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	app.closer = closer
	return app, nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, io.Closer, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil, nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, redisStore, nil
	case StorageTypePostgres, StorageTypeSQLite:
		if cfg.SQLConfig == nil {
			return nil, nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		sqlCfg := *cfg.SQLConfig
		sqlCfg.Dialect = sqlstore.Dialect(storageType)
		sqlStore, err := sqlstore.New(ctx, sqlCfg)
		if err != nil {
			return nil, nil, err
		}
		return sqlStore, sqlStore, nil
	default:
		return nil, nil, fmt.Errorf("invalid StorageType %q: must be memory, redis, postgres or sqlite", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) (*App, error) {
	authService := auth.New(store, clk, rnd, cfg.AuthConfig, logger)
	registry := linking.NewRegistry(store, clk, rnd, cfg.LinkingConfig, logger)
	workflow := achievement.NewWorkflow(store, clk, rnd, logger)
	aggregator, err := stats.NewAggregator(store, cfg.StatsCacheSize, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		AuthService:     authService,
		LinkRegistry:    registry,
		Workflow:        workflow,
		StatsAggregator: aggregator,
		Sweeper:         linking.NewSweeper(registry, cfg.SweepInterval, logger),
	}, nil
}

// Close releases the storage connection, if any
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
