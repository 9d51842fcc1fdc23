package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishWithoutSubscribersIsSilent(t *testing.T) {
	broker := NewBroker(newTestRedis(t))
	ctx := context.Background()

	// No subscriber attached: the message is dropped, not an error.
	err := broker.Publish(ctx, DeviceTopic(1), []byte(`{"instruction":"update_setup"}`))
	require.NoError(t, err)
}

func TestBroker_SubscriberCount(t *testing.T) {
	broker := NewBroker(newTestRedis(t))
	ctx := context.Background()
	topic := DeviceTopic(2)

	count, err := broker.SubscriberCount(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	sub := broker.Subscribe(ctx, topic)
	require.Eventually(t, func() bool {
		count, err := broker.SubscriberCount(ctx, topic)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Close())
	require.Eventually(t, func() bool {
		count, err := broker.SubscriberCount(ctx, topic)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroker_TopicNames(t *testing.T) {
	assert.Equal(t, "device:17:instructions", DeviceTopic(17))
	assert.Equal(t, "123456789", CodeTopic(123456789))
	assert.Equal(t, "devices:status", StatusTopic)
}
