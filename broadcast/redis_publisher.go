// broadcast/redis_publisher.go
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/luishdz04/muscleup-gym/logging"
)

// RedisPublisher mirrors every observer message onto a Redis pub/sub
// channel so dashboards on other hosts see events without holding a
// socket to this agent.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends a message on the channel. Mirror failures are logged,
// never surfaced: the WebSocket hub remains the primary transport.
func (p *RedisPublisher) Publish(ctx context.Context, message interface{}) {
	if p == nil || p.client == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to encode event for Redis mirror", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		logger.Warn("Redis event mirror publish failed", zap.Error(err))
	}
}
