package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
)

func newTestSender(t *testing.T) (*InstructionSender, *Broker, *fakeDeviceRepo) {
	broker := NewBroker(newTestRedis(t))
	devices := newFakeDeviceRepo()
	return NewInstructionSender(broker, devices, zaptest.NewLogger(t)), broker, devices
}

func TestInstructionSender_SendSnapshot(t *testing.T) {
	sender, broker, devices := newTestSender(t)
	ctx := context.Background()

	device := &models.Device{Name: "kiosk", Location: "hall", APIKey: "kiosk-key", LastSeen: time.Now().UTC()}
	require.NoError(t, devices.Create(ctx, device))

	sub := broker.Subscribe(ctx, DeviceTopic(device.ID))
	defer sub.Close()
	awaitSubscriber(t, broker, DeviceTopic(device.ID), 1)

	require.NoError(t, sender.SendSnapshot(ctx, device.ID, "https://bucket/shot.png"))

	select {
	case msg := <-sub.Channel():
		instruction, err := models.DecodeInstruction([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, models.InstructionSnapshot, instruction.Kind)
		assert.Equal(t, "https://bucket/shot.png", instruction.URL)
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot instruction was not delivered")
	}
}

func TestInstructionSender_SendSnapshotOffline(t *testing.T) {
	sender, _, devices := newTestSender(t)
	ctx := context.Background()

	device := &models.Device{Name: "dark-screen", Location: "basement", APIKey: "dark-key", LastSeen: time.Now().UTC()}
	require.NoError(t, devices.Create(ctx, device))

	err := sender.SendSnapshot(ctx, device.ID, "https://bucket/shot.png")
	assert.ErrorIs(t, err, ErrDeviceOffline)
}

func TestInstructionSender_SendSnapshotUnknownDevice(t *testing.T) {
	sender, _, _ := newTestSender(t)

	err := sender.SendSnapshot(context.Background(), 404, "https://bucket/shot.png")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestInstructionSender_NotifyUpdate(t *testing.T) {
	sender, broker, _ := newTestSender(t)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, DeviceTopic(10))
	defer sub.Close()
	awaitSubscriber(t, broker, DeviceTopic(10), 1)

	// Device 99 has no listener; its signal is dropped without error.
	sender.NotifyUpdate(ctx, []int64{10, 99})

	select {
	case msg := <-sub.Channel():
		instruction, err := models.DecodeInstruction([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, models.InstructionUpdateSetup, instruction.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("update instruction was not delivered")
	}
}
