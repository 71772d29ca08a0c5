package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mcoot/crickettalent/internal/api"
	"github.com/mcoot/crickettalent/internal/config"
	"github.com/mcoot/crickettalent/internal/factory"
	"github.com/mcoot/crickettalent/internal/services/auth"
	"github.com/mcoot/crickettalent/internal/services/linking"
	redisstorage "github.com/mcoot/crickettalent/internal/storage/redis"
	"github.com/mcoot/crickettalent/internal/storage/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("CRICKET_AUTH_JWT_SECRET not set, using development secret")
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	if cfg.Auth.AdminUsername != "" {
		if err := app.AuthService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			logger.Error("failed to provision admin account", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Expired access codes are purged in the background
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Sweeper.Run(ctx)
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		LinkRegistry:    app.LinkRegistry,
		Workflow:        app.Workflow,
		StatsAggregator: app.StatsAggregator,
		AllowedOrigins:  cfg.HTTP.CORSOrigins,
	})

	// Create server
	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	cancel()
	wg.Wait()
	logger.Info("server stopped")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// factoryConfig maps environment configuration onto the application factory
func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	out := factory.Config{
		AuthConfig: auth.Config{
			Secret:   cfg.Auth.JWTSecret,
			TokenTTL: cfg.Auth.TokenTTL,
		},
		LinkingConfig:  linking.Config{CodeTTL: cfg.AccessCodeTTL},
		SweepInterval:  cfg.SweepInterval,
		StatsCacheSize: cfg.StatsCacheSize,
		Logger:         logger,
		StorageType:    cfg.Storage.Type,
	}

	switch cfg.Storage.Type {
	case factory.StorageTypeRedis:
		out.RedisConfig = &redisstorage.Config{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
		}
	case factory.StorageTypePostgres, factory.StorageTypeSQLite:
		out.SQLConfig = &sqlstore.Config{
			DSN:          cfg.DB.DSN,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			MaxIdleConns: cfg.DB.MaxIdleConns,
		}
	}

	return out
}
