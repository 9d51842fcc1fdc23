package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hmaged/signfleet/internal/models"
)

func newTestPresence(t *testing.T) (*Presence, *Broker) {
	client := newTestRedis(t)
	broker := NewBroker(client)
	return NewPresence(client, broker, zaptest.NewLogger(t)), broker
}

func TestPresence_MarkOnline_TransitionsOnce(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	// ACT: first mark transitions, second is a no-op
	transitioned, err := presence.MarkOnline(ctx, 7)
	require.NoError(t, err)
	assert.True(t, transitioned, "first mark-online should transition")

	transitioned, err = presence.MarkOnline(ctx, 7)
	require.NoError(t, err)
	assert.False(t, transitioned, "second mark-online should be a no-op")

	online, err := presence.IsOnline(ctx, 7)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestPresence_MarkOffline_UnknownDeviceIsNoOp(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	transitioned, err := presence.MarkOffline(ctx, 42)
	require.NoError(t, err)
	assert.False(t, transitioned, "offline on unknown device should be a no-op")
}

func TestPresence_Snapshot(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := presence.MarkOnline(ctx, id)
		require.NoError(t, err)
	}
	_, err := presence.MarkOffline(ctx, 2)
	require.NoError(t, err)

	ids, err := presence.Snapshot(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestPresence_TransitionsPublishToStatusTopic(t *testing.T) {
	presence, broker := newTestPresence(t)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, StatusTopic)
	defer sub.Close()

	// Make sure the subscription is live before publishing.
	require.Eventually(t, func() bool {
		count, err := broker.SubscriberCount(ctx, StatusTopic)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := presence.MarkOnline(ctx, 9)
	require.NoError(t, err)
	_, err = presence.MarkOffline(ctx, 9)
	require.NoError(t, err)

	readEntry := func() models.PresenceEntry {
		select {
		case msg := <-sub.Channel():
			var entry models.PresenceEntry
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &entry))
			return entry
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for presence transition")
			return models.PresenceEntry{}
		}
	}

	online := readEntry()
	assert.Equal(t, int64(9), online.DeviceID)
	assert.Equal(t, models.StatusOnline, online.Status)

	offline := readEntry()
	assert.Equal(t, int64(9), offline.DeviceID)
	assert.Equal(t, models.StatusOffline, offline.Status)
}

func TestPresence_NoPublishWithoutTransition(t *testing.T) {
	presence, broker := newTestPresence(t)
	ctx := context.Background()

	_, err := presence.MarkOnline(ctx, 5)
	require.NoError(t, err)

	sub := broker.Subscribe(ctx, StatusTopic)
	defer sub.Close()
	require.Eventually(t, func() bool {
		count, err := broker.SubscriberCount(ctx, StatusTopic)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Re-marking an online device must not publish a duplicate entry.
	_, err = presence.MarkOnline(ctx, 5)
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected presence publish: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
