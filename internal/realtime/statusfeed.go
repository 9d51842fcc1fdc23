package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StatusFeed republishes presence transitions to admin observers. Each
// observer first receives a snapshot of the currently online device IDs, then
// live deltas; no history is retained beyond that snapshot.
type StatusFeed struct {
	broker    *Broker
	presence  *Presence
	heartbeat time.Duration
	log       *zap.Logger
}

func NewStatusFeed(broker *Broker, presence *Presence, heartbeat time.Duration, log *zap.Logger) *StatusFeed {
	return &StatusFeed{broker: broker, presence: presence, heartbeat: heartbeat, log: log}
}

// Observe streams presence transitions until the client disconnects.
func (f *StatusFeed) Observe(ctx context.Context, emit func(Frame) error) error {
	sub := f.broker.Subscribe(ctx, StatusTopic)
	defer func() {
		if err := sub.Close(); err != nil {
			f.log.Warn("failed to close status subscription", zap.Error(err))
		}
	}()

	// Subscribe before snapshotting so transitions landing in between are
	// not lost; an observer may see a delta that is already reflected in the
	// snapshot, which is harmless.
	online, err := f.presence.Snapshot(ctx)
	if err != nil {
		return err
	}
	if online == nil {
		online = []int64{}
	}
	snapshot, err := json.Marshal(online)
	if err != nil {
		return fmt.Errorf("failed to encode presence snapshot: %w", err)
	}
	if err := emit(Frame{Event: EventMessage, Data: string(snapshot)}); err != nil {
		return nil
	}

	ticker := time.NewTicker(f.heartbeat)
	defer ticker.Stop()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := emit(heartbeatFrame()); err != nil {
				return nil
			}
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := emit(Frame{Event: EventUpdate, Data: msg.Payload}); err != nil {
				return nil
			}
		}
	}
}
