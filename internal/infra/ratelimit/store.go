// Package ratelimit provides the storage behind the per-client request limiter.
package ratelimit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/redis/go-redis/v9"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/infra/logging"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const pingTimeout = 2 * time.Second

// NewStore returns a Redis-backed limiter store when cache.redis_host answers
// PING, and an in-process store otherwise.
func NewStore(cfg config.Config) (fiber.Storage, string) {
	if cfg.Cache.RedisHost == "" {
		return memoryStorage.New(), BackendMemory
	}
	if err := ping(cfg.Cache.RedisHost, cfg.Cache.RateLimitDB); err != nil {
		logging.Warn("Redis unreachable, rate limiting in memory", "addr", cfg.Cache.RedisHost, "error", err)
		return memoryStorage.New(), BackendMemory
	}

	var store fiber.Storage = memoryStorage.New()
	backend := BackendMemory
	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			}
		}()
		store = redisStorage.New(redisStorage.Config{
			Addrs:    []string{cfg.Cache.RedisHost},
			Database: cfg.Cache.RateLimitDB,
		})
		backend = BackendRedis
		logging.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
	}()
	return store, backend
}

func ping(addr string, db int) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
