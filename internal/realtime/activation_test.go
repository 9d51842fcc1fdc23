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

func newTestActivation(t *testing.T, timeout time.Duration) (*Activation, *Broker, *fakeDeviceRepo) {
	broker := NewBroker(newTestRedis(t))
	devices := newFakeDeviceRepo()
	activation := NewActivation(broker, devices, time.Hour, timeout, zaptest.NewLogger(t))
	return activation, broker, devices
}

func awaitSubscriber(t *testing.T, broker *Broker, topic string, want int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		count, err := broker.SubscriberCount(context.Background(), topic)
		return err == nil && count == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestActivation_Handshake(t *testing.T) {
	activation, broker, devices := newTestActivation(t, 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const code = int64(123456789)

	collector := &frameCollector{}
	done := make(chan error, 1)
	go func() {
		done <- activation.Await(ctx, code, collector.emit)
	}()
	awaitSubscriber(t, broker, CodeTopic(code), 1)

	device, err := activation.Fulfill(ctx, &models.ActivationRequest{
		Code:     code,
		Name:     "lobby-screen",
		Location: "front lobby",
	})
	require.NoError(t, err)
	assert.Equal(t, "lobby-screen", device.Name)
	assert.Len(t, device.APIKey, 43)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("await did not return after fulfillment")
	}

	messages := collector.messages()
	require.Len(t, messages, 1, "exactly one grant must be delivered")

	var grant models.ActivationGrant
	require.NoError(t, json.Unmarshal([]byte(messages[0].Data), &grant))
	assert.Equal(t, "lobby-screen", grant.Name)
	assert.Equal(t, device.APIKey, grant.APIKey)

	persisted, err := devices.GetByAPIKey(ctx, device.APIKey)
	require.NoError(t, err)
	assert.Equal(t, device.ID, persisted.ID)
	assert.False(t, persisted.LastSeen.IsZero())
}

func TestActivation_FulfillWithoutAwaiter(t *testing.T) {
	activation, _, _ := newTestActivation(t, 30*time.Second)

	_, err := activation.Fulfill(context.Background(), &models.ActivationRequest{
		Code: 111111111,
		Name: "orphan",
	})
	assert.ErrorIs(t, err, ErrNoClientAwaiting)
}

func TestActivation_ClaimedCodeRejectsSecondAwait(t *testing.T) {
	activation, broker, _ := newTestActivation(t, 30*time.Second)
	ctx := context.Background()

	const code = int64(222222222)

	sub := broker.Subscribe(ctx, CodeTopic(code))
	defer sub.Close()
	awaitSubscriber(t, broker, CodeTopic(code), 1)

	assert.ErrorIs(t, activation.Available(ctx, code), ErrCodeClaimed)

	collector := &frameCollector{}
	err := activation.Await(ctx, code, collector.emit)
	assert.ErrorIs(t, err, ErrCodeClaimed)
	assert.Empty(t, collector.snapshot())
}

func TestActivation_AwaitTimesOutQuietly(t *testing.T) {
	activation, _, _ := newTestActivation(t, 100*time.Millisecond)

	collector := &frameCollector{}
	err := activation.Await(context.Background(), 333333333, collector.emit)
	require.NoError(t, err)
	assert.Empty(t, collector.messages(), "an expired code delivers nothing")
}

func TestActivation_AwaitHeartbeatsWhilePending(t *testing.T) {
	broker := NewBroker(newTestRedis(t))
	activation := NewActivation(broker, newFakeDeviceRepo(), 25*time.Millisecond, 30*time.Second, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const code = int64(555555555)
	collector := &frameCollector{}
	done := make(chan error, 1)
	go func() {
		done <- activation.Await(ctx, code, collector.emit)
	}()
	awaitSubscriber(t, broker, CodeTopic(code), 1)

	require.Eventually(t, func() bool {
		return len(collector.heartbeats()) >= 3
	}, 3*time.Second, 10*time.Millisecond, "pending activation must heartbeat")
	assert.Equal(t, "heartbeat", collector.heartbeats()[0].Data)
	assert.Empty(t, collector.messages(), "no grant was published yet")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("await did not stop on disconnect")
	}
}

func TestActivation_DuplicateNameRejected(t *testing.T) {
	activation, broker, devices := newTestActivation(t, 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, devices.Create(ctx, &models.Device{
		Name:     "taken",
		APIKey:   "existing-key",
		Location: "somewhere",
	}))

	const code = int64(444444444)
	collector := &frameCollector{}
	go activation.Await(ctx, code, collector.emit)
	awaitSubscriber(t, broker, CodeTopic(code), 1)

	_, err := activation.Fulfill(ctx, &models.ActivationRequest{
		Code: code,
		Name: "taken",
	})
	assert.ErrorIs(t, err, ErrNameTaken)
}
