package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
)

const onlineDevicesKey = "online_devices"

// Presence is the authoritative online/offline registry. Membership of the
// Redis set is the online state; it is rebuilt empty on restart, devices
// re-attach. Every real transition is additionally published on the status
// fan-out topic; that publish is best-effort.
type Presence struct {
	rdb    *redis.Client
	broker *Broker
	log    *zap.Logger
}

func NewPresence(rdb *redis.Client, broker *Broker, log *zap.Logger) *Presence {
	return &Presence{rdb: rdb, broker: broker, log: log}
}

// MarkOnline adds the device to the online set. The returned bool reports
// whether this call actually transitioned the device (compare-and-swap on the
// set add), so two racing sessions cannot both believe they own the entry.
func (p *Presence) MarkOnline(ctx context.Context, deviceID int64) (bool, error) {
	added, err := p.rdb.SAdd(ctx, onlineDevicesKey, deviceID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark device %d online: %w", deviceID, err)
	}
	if added == 0 {
		return false, nil
	}
	p.publishTransition(ctx, deviceID, models.StatusOnline)
	return true, nil
}

// MarkOffline removes the device from the online set. Removing an unknown
// device is a no-op and publishes nothing.
func (p *Presence) MarkOffline(ctx context.Context, deviceID int64) (bool, error) {
	removed, err := p.rdb.SRem(ctx, onlineDevicesKey, deviceID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark device %d offline: %w", deviceID, err)
	}
	if removed == 0 {
		return false, nil
	}
	p.publishTransition(ctx, deviceID, models.StatusOffline)
	return true, nil
}

func (p *Presence) IsOnline(ctx context.Context, deviceID int64) (bool, error) {
	online, err := p.rdb.SIsMember(ctx, onlineDevicesKey, deviceID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check device %d presence: %w", deviceID, err)
	}
	return online, nil
}

// Snapshot returns the IDs of all currently online devices.
func (p *Presence) Snapshot(ctx context.Context) ([]int64, error) {
	members, err := p.rdb.SMembers(ctx, onlineDevicesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot online devices: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			p.log.Warn("skipping malformed online set member", zap.String("member", member))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *Presence) publishTransition(ctx context.Context, deviceID int64, status models.PresenceStatus) {
	payload, err := json.Marshal(models.PresenceEntry{DeviceID: deviceID, Status: status})
	if err != nil {
		p.log.Error("failed to encode presence entry", zap.Int64("device_id", deviceID), zap.Error(err))
		return
	}
	if err := p.broker.Publish(ctx, StatusTopic, payload); err != nil {
		p.log.Warn("failed to publish presence transition",
			zap.Int64("device_id", deviceID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
