// Package bootstrap prepares the process-wide runtime shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Version is reported to the tracing backend.
const Version = "1.0.0"

// Runtime bundles the connections every command needs.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	shutdownTracing func(context.Context) error
}

// LoadConfig reads an optional .env file into the environment, then loads
// the configuration and reconfigures the logger for its environment.
func LoadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		middleware.Logger.Warn("failed to read .env", slog.String("error", err.Error()))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	middleware.Configure(cfg.Env)
	return cfg, nil
}

// InitRuntime starts tracing and connects to the database and Redis. A
// missing Redis is not fatal; Runtime.Redis is then nil.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "yatube",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return &Runtime{
		Config:          cfg,
		DB:              db,
		Redis:           cache.InitRedis(cfg.RedisURL),
		shutdownTracing: shutdown,
	}, nil
}

// Close flushes traces and closes the connections.
func (r *Runtime) Close(ctx context.Context) {
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
