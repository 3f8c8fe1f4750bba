// Package bootstrap builds the storage and cache runtime shared by the commands.
package bootstrap

import (
	"fmt"
	"log/slog"

	"webforum/internal/cache"
	"webforum/internal/config"
	"webforum/internal/database"
	"webforum/internal/middleware"
	"webforum/internal/repository"
	"webforum/internal/repository/memory"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the repositories selected by STORAGE plus the optional Redis client.
type Runtime struct {
	// DB is nil when the in-memory store is active.
	DB    *gorm.DB
	Redis *redis.Client

	Users repository.UserRepository
	Posts repository.PostRepository
	Tags  repository.TagRepository
}

// InitRuntime connects storage and Redis. Redis is optional: when it cannot be
// reached the cache is disabled and every read goes to storage.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	switch cfg.Storage {
	case "memory":
		store := memory.New()
		rt.Users, rt.Posts, rt.Tags = store.Users(), store.Posts(), store.Tags()
		middleware.Logger.Warn("using in-memory storage; data is lost on exit")
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.DB = db
		rt.Users = repository.NewUserRepository(db)
		rt.Posts = repository.NewPostRepository(db)
		rt.Tags = repository.NewTagRepository(db)
	}

	if cfg.RedisURL != "" {
		cache.InitRedis(cfg.RedisURL)
		rt.Redis = cache.GetClient()
	}
	if rt.Redis == nil {
		middleware.Logger.Warn("redis unavailable; caching and rate limiting disabled")
	}

	return rt, nil
}

// Close releases the database and Redis connections.
func (rt *Runtime) Close() {
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}
	if rt.Redis != nil {
		if rerr := rt.Redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
		cache.SetClient(nil)
	}
}
