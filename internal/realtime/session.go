package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
)

// frameQueueSize bounds the merge queue between the producers (listener,
// heartbeat) and the stream writer. Instructions block on a full queue to
// preserve their relative order; heartbeats are dropped instead.
const frameQueueSize = 64

type sessionHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// SessionManager owns every live device instruction stream in this process.
// At most one session per device: a new attach evicts and waits out any prior
// session for the same identity before registering presence, so presence
// events cannot double-fire.
type SessionManager struct {
	broker    *Broker
	presence  *Presence
	devices   repositories.DeviceRepository
	heartbeat time.Duration
	log       *zap.Logger

	mu     sync.Mutex
	active map[int64]*sessionHandle
}

func NewSessionManager(
	broker *Broker,
	presence *Presence,
	devices repositories.DeviceRepository,
	heartbeat time.Duration,
	log *zap.Logger,
) *SessionManager {
	return &SessionManager{
		broker:    broker,
		presence:  presence,
		devices:   devices,
		heartbeat: heartbeat,
		log:       log,
		active:    make(map[int64]*sessionHandle),
	}
}

// Run drives one device session until the client disconnects or the session
// is evicted. Frames are handed to emit in arrival order; emit runs on the
// caller's goroutine and is never called after Run returns.
//
// Cleanup (unsubscribe, mark offline, persist last-seen) runs exactly once
// whichever way the session ends, and each step is log-and-continue so one
// failure cannot skip the rest.
func (m *SessionManager) Run(ctx context.Context, device *models.Device, emit func(Frame) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handle := &sessionHandle{cancel: cancel, done: make(chan struct{})}
	m.attach(device.ID, handle)
	defer func() {
		m.unregister(device.ID, handle)
		close(handle.done)
	}()

	log := m.log.With(zap.Int64("device_id", device.ID))

	sub := m.broker.Subscribe(ctx, DeviceTopic(device.ID))

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			// The stream context is already cancelled on most exit paths.
			cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer ccancel()

			if err := sub.Close(); err != nil {
				log.Warn("failed to close instruction subscription", zap.Error(err))
			}
			if _, err := m.presence.MarkOffline(cctx, device.ID); err != nil {
				log.Warn("failed to mark device offline", zap.Error(err))
			}
			if err := m.devices.TouchLastSeen(cctx, device.ID); err != nil {
				log.Warn("failed to persist last seen", zap.Error(err))
			}
		})
	}
	defer cleanup()

	if _, err := m.presence.MarkOnline(ctx, device.ID); err != nil {
		return err
	}
	if err := m.devices.TouchLastSeen(ctx, device.ID); err != nil {
		log.Warn("failed to persist last seen on attach", zap.Error(err))
	}

	frames := make(chan Frame, frameQueueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.listen(gctx, sub.Channel(), frames, log)
	})
	g.Go(func() error {
		return m.sendHeartbeats(gctx, frames)
	})

	// Writer loop: drain the merge queue in FIFO order until the stream ends.
	var emitErr error
loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case frame := <-frames:
			if err := emit(frame); err != nil {
				emitErr = err
				break loop
			}
		}
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("session task ended abnormally", zap.Error(err))
	}
	cleanup()

	if emitErr != nil && !errors.Is(emitErr, context.Canceled) {
		return emitErr
	}
	return nil
}

func (m *SessionManager) listen(ctx context.Context, messages <-chan *redis.Message, frames chan<- Frame, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			instruction, err := models.DecodeInstruction([]byte(msg.Payload))
			if err != nil {
				log.Warn("dropping malformed instruction", zap.Error(err))
				continue
			}
			data, err := instruction.Encode()
			if err != nil {
				log.Error("failed to re-encode instruction", zap.Error(err))
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case frames <- Frame{Event: EventMessage, Data: string(data)}:
			}
		}
	}
}

func (m *SessionManager) sendHeartbeats(ctx context.Context, frames chan<- Frame) error {
	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case frames <- heartbeatFrame():
			default:
				// Slow consumer; skip this heartbeat rather than stall
				// instruction delivery.
			}
		}
	}
}

// attach claims the device's session slot, evicting any live session first:
// the prior session is cancelled and waited out, then the slot is re-checked
// under the lock before inserting, so two concurrent attaches for the same
// device cannot both end up registered.
func (m *SessionManager) attach(deviceID int64, handle *sessionHandle) {
	for {
		m.mu.Lock()
		prior := m.active[deviceID]
		if prior == nil {
			m.active[deviceID] = handle
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		prior.cancel()
		<-prior.done
	}
}

func (m *SessionManager) unregister(deviceID int64, handle *sessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[deviceID] == handle {
		delete(m.active, deviceID)
	}
}
