package realtime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
)

// ErrDeviceOffline means the target device has no instruction stream attached.
var ErrDeviceOffline = errors.New("device is offline")

// InstructionSender publishes fire-and-forget instructions to device topics.
type InstructionSender struct {
	broker  *Broker
	devices repositories.DeviceRepository
	log     *zap.Logger
}

func NewInstructionSender(broker *Broker, devices repositories.DeviceRepository, log *zap.Logger) *InstructionSender {
	return &InstructionSender{broker: broker, devices: devices, log: log}
}

// SendSnapshot instructs one device to capture a screenshot and upload it to
// the given URL. Fails if the device does not exist or has no attached
// session; a snapshot sent into the void helps nobody.
func (s *InstructionSender) SendSnapshot(ctx context.Context, deviceID int64, url string) error {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return err
	}

	count, err := s.broker.SubscriberCount(ctx, DeviceTopic(deviceID))
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("device %d: %w", deviceID, ErrDeviceOffline)
	}

	payload, err := models.SnapshotInstruction(url).Encode()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot instruction: %w", err)
	}
	return s.broker.Publish(ctx, DeviceTopic(deviceID), payload)
}

// NotifyUpdate wakes each listed device so it refetches its setup. Offline
// devices miss the signal by design; they fetch fresh state on reconnect.
func (s *InstructionSender) NotifyUpdate(ctx context.Context, deviceIDs []int64) {
	payload, err := models.UpdateSetupInstruction().Encode()
	if err != nil {
		s.log.Error("failed to encode update instruction", zap.Error(err))
		return
	}

	for _, deviceID := range deviceIDs {
		if err := s.broker.Publish(ctx, DeviceTopic(deviceID), payload); err != nil {
			s.log.Warn("failed to notify device", zap.Int64("device_id", deviceID), zap.Error(err))
		}
	}
}
