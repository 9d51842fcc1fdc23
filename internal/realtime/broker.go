// Package realtime implements the presence and instruction-delivery core:
// per-device instruction topics, the devices:status fan-out, activation
// handshakes, and the long-lived device session streams, all on top of Redis
// pub/sub. Delivery is at-most-once by design; an instruction is a wake-up
// signal, and devices refetch authoritative state over HTTP after receiving
// one.
package realtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StatusTopic carries every presence transition to subscribed observers.
const StatusTopic = "devices:status"

// DeviceTopic is the unicast instruction channel of one device.
func DeviceTopic(deviceID int64) string {
	return fmt.Sprintf("device:%d:instructions", deviceID)
}

// CodeTopic is the ephemeral handshake channel of an activation code.
func CodeTopic(code int64) string {
	return strconv.FormatInt(code, 10)
}

// Broker is a thin pub/sub facade over Redis. Publishing to a topic with no
// subscribers drops the message silently; that is the contract, not an error.
type Broker struct {
	rdb *redis.Client
}

func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb}
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe attaches to a topic. The caller owns the subscription and must
// Close it when the stream ends.
func (b *Broker) Subscribe(ctx context.Context, topic string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, topic)
}

// SubscriberCount reports how many clients are attached to a topic right now.
// Activation fulfillment and instruction sends gate on this.
func (b *Broker) SubscriberCount(ctx context.Context, topic string) (int64, error) {
	counts, err := b.rdb.PubSubNumSub(ctx, topic).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers on %s: %w", topic, err)
	}
	return counts[topic], nil
}
