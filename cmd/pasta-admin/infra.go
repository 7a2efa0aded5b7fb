package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jjstretton/pasta/config"
	"github.com/jjstretton/pasta/internal/bootstrap"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfra connects Postgres and, when configured, Redis. A Redis failure is not fatal
// for admin commands: they fall back to Postgres notifications and skip the rerun guard.
//
//nolint:ireturn // redis.UniversalClient keeps cluster support flexible.
func connectInfra(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := maybeConnectRedis(logger, &cfg.Redis)
	switch {
	case err == nil:
	case errors.Is(err, errRedisNotConfigured):
	default:
		logger.Warn("continuing without redis", "error", err)
	}
	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when Redis is enabled.
//
//nolint:ireturn // see connectInfra
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil || !cfg.Enabled {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	return cfg.URI != ""
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
