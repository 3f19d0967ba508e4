package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/env"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/logger"
)

// SetupCache initializes the connection to the Redis compatible cache server.
func SetupCache(ctx context.Context) *redis.Client {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.L().Warn("could not connect to cache", zap.String("addr", client.Options().Addr), zap.Error(err))
	} else {
		logger.L().Info("connected to cache", zap.String("addr", client.Options().Addr))
	}
	return client
}
