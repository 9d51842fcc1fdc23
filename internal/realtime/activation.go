package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
	"github.com/hmaged/signfleet/internal/utils"
)

var (
	// ErrNoClientAwaiting means nobody is subscribed on the code's topic at
	// the moment the registration is processed.
	ErrNoClientAwaiting = errors.New("no client awaiting")

	// ErrCodeClaimed means the code topic already has a subscriber; a code
	// admits at most one awaiting client.
	ErrCodeClaimed = errors.New("code already claimed")

	// ErrNameTaken means the requested device name is already registered.
	ErrNameTaken = errors.New("device name already exists")
)

// Activation runs the handshake that binds a one-time code to a new device:
// the client awaits on the code topic, an admin fulfills against it, and the
// freshly minted credential is published exactly once.
type Activation struct {
	broker    *Broker
	devices   repositories.DeviceRepository
	heartbeat time.Duration
	timeout   time.Duration
	log       *zap.Logger
}

func NewActivation(
	broker *Broker,
	devices repositories.DeviceRepository,
	heartbeat time.Duration,
	timeout time.Duration,
	log *zap.Logger,
) *Activation {
	return &Activation{
		broker:    broker,
		devices:   devices,
		heartbeat: heartbeat,
		timeout:   timeout,
		log:       log,
	}
}

// Available reports whether the code topic is still unclaimed. Handlers call
// this before committing to a stream response; Await re-checks anyway.
func (a *Activation) Available(ctx context.Context, code int64) error {
	count, err := a.broker.SubscriberCount(ctx, CodeTopic(code))
	if err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("code %d: %w", code, ErrCodeClaimed)
	}
	return nil
}

// Await streams on the code topic until the first message arrives (emitted,
// then the stream detaches), the idle timeout elapses with nothing delivered,
// or the client disconnects. Returns ErrCodeClaimed if the topic already has
// a subscriber.
func (a *Activation) Await(ctx context.Context, code int64, emit func(Frame) error) error {
	topic := CodeTopic(code)

	if err := a.Available(ctx, code); err != nil {
		return err
	}

	sub := a.broker.Subscribe(ctx, topic)
	defer func() {
		if err := sub.Close(); err != nil {
			a.log.Warn("failed to close activation subscription",
				zap.Int64("code", code), zap.Error(err))
		}
	}()

	timeout := time.NewTimer(a.timeout)
	defer timeout.Stop()
	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			// Expired with nothing delivered; the code is never reused.
			return nil
		case <-ticker.C:
			if err := emit(heartbeatFrame()); err != nil {
				return nil
			}
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := emit(Frame{Event: EventMessage, Data: msg.Payload}); err != nil {
				return nil
			}
			// One grant per code; detach after delivery.
			return nil
		}
	}
}

// Fulfill registers a new device against an awaiting code. The subscriber
// count is re-checked per request, so of two racing fulfillments the second
// observes zero subscribers (the first consumer detached) and fails.
func (a *Activation) Fulfill(ctx context.Context, req *models.ActivationRequest) (*models.Device, error) {
	topic := CodeTopic(req.Code)

	count, err := a.broker.SubscriberCount(ctx, topic)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("pin %d: %w", req.Code, ErrNoClientAwaiting)
	}

	if _, err := a.devices.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("name %q: %w", req.Name, ErrNameTaken)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	apiKey, err := a.uniqueAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	device := &models.Device{
		Name:     req.Name,
		Location: req.Location,
		APIKey:   apiKey,
		LastSeen: time.Now().UTC(),
	}
	if err := a.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(models.ActivationGrant{Name: device.Name, APIKey: device.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to encode activation grant: %w", err)
	}
	if err := a.broker.Publish(ctx, topic, payload); err != nil {
		return nil, err
	}

	return device, nil
}

func (a *Activation) uniqueAPIKey(ctx context.Context) (string, error) {
	// Collisions are astronomically unlikely; the retry mirrors the
	// credential-uniqueness guarantee anyway.
	for {
		apiKey, err := utils.GenerateAPIKey()
		if err != nil {
			return "", err
		}
		_, err = a.devices.GetByAPIKey(ctx, apiKey)
		if errors.Is(err, repositories.ErrNotFound) {
			return apiKey, nil
		}
		if err != nil {
			return "", err
		}
	}
}
