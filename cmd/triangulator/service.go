package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/triangulator"
	"github.com/aretw0/triangulator/internal/config"
	"github.com/aretw0/triangulator/pkg/adapters/file"
	"github.com/aretw0/triangulator/pkg/adapters/memory"
	"github.com/aretw0/triangulator/pkg/adapters/redis"
	"github.com/aretw0/triangulator/pkg/adapters/upstream"
	"github.com/aretw0/triangulator/pkg/domain"
)

// buildService wires the adapters selected by cfg into a Service. The
// returned cleanup releases them and is never nil.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*triangulator.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to release resource", "error", err)
			}
		}
	}

	opts := []triangulator.Option{
		triangulator.WithLogger(logger),
		triangulator.WithLifecycleHooks(hooks),
		triangulator.WithSelfCheck(cfg.SelfCheck),
	}
	if cfg.Tolerance.Absolute > 0 {
		opts = append(opts, triangulator.WithAbsoluteTolerance(cfg.Tolerance.Absolute))
	} else {
		opts = append(opts, triangulator.WithTolerance(cfg.Tolerance.Relative))
	}

	switch {
	case cfg.Upstream.BaseURL != "":
		client, err := upstream.New(cfg.Upstream.BaseURL,
			upstream.WithTimeout(cfg.Upstream.Timeout),
			upstream.WithRetries(uint64(cfg.Upstream.Retries)),
			upstream.WithLogger(logger),
		)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, triangulator.WithSource(client))
		logger.Info("using upstream point-set manager", "base_url", cfg.Upstream.BaseURL)
	case cfg.PointsDir != "":
		opts = append(opts, triangulator.WithSource(file.New(cfg.PointsDir)))
		logger.Info("using point-set directory", "dir", cfg.PointsDir)
	default:
		logger.Warn("no point-set source configured, only inline points can be triangulated")
	}

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		opts = append(opts, triangulator.WithCache(memory.NewCache(memory.WithTTL(cfg.Cache.TTL))))
	case config.CacheRedis:
		cache := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithTTL(cfg.Cache.TTL))
		closers = append(closers, cache.Close)
		if err := cache.Ping(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("redis cache unavailable: %w", err)
		}
		opts = append(opts, triangulator.WithCache(cache))
		if cfg.Redis.LockTTL > 0 {
			opts = append(opts, triangulator.WithLocker(newRedisLocker(cache), cfg.Redis.LockTTL))
		}
	}

	return triangulator.New(opts...), cleanup, nil
}

// newRedisLocker shares the cache's connection and namespace. The locker adds
// its own "lock:" segment, so keys read triangulator:lock:<id>.
func newRedisLocker(cache *redis.Cache) *redis.Locker {
	return redis.NewLocker(cache.Client(), redis.DefaultPrefix)
}
