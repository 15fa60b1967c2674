// broadcast/redis_publisher_test.go
package broadcast

import (
	"context"
	"testing"
)

func TestRedisPublisherWithoutClientIsNoOp(t *testing.T) {
	// Redis is optional; a mirror built without a client must swallow
	// publishes instead of panicking.
	p := NewRedisPublisher(nil, "access-events")
	p.Publish(context.Background(), AccessMessage{Type: TypeAccessGranted})

	var nilPublisher *RedisPublisher
	nilPublisher.Publish(context.Background(), AccessMessage{Type: TypeAccessDenied})
}
