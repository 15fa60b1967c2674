// db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/luishdz04/muscleup-gym/logging"
)

var RedisClient *redis.Client

// InitRedis connects the optional event-mirror client. An empty
// redis.addr leaves RedisClient nil and the mirror disabled.
func InitRedis() error {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		logger.Info("Redis not configured, event mirror disabled")
		return nil
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

// RateLimit counts requests per key in a rolling window. With the
// mirror disabled there is no shared counter, so every request is
// allowed.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	if RedisClient == nil {
		return true, nil
	}

	pipe := RedisClient.TxPipeline()
	incr := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.Expire(ctx, "ratelimit:"+key, per)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}
