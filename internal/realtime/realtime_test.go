package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
)

// Shared test fixtures for the realtime package.

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err(), "failed to connect to test redis")
	return client
}

// fakeDeviceRepo is an in-memory stand-in for the Postgres device repository.
type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[int64]*models.Device
	nextID  int64
	touches map[int64]int
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{
		devices: make(map[int64]*models.Device),
		touches: make(map[int64]int),
	}
}

func (f *fakeDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	device.ID = f.nextID
	copied := *device
	f.devices[device.ID] = &copied
	return nil
}

func (f *fakeDeviceRepo) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if device, ok := f.devices[id]; ok {
		copied := *device
		return &copied, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDeviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, device := range f.devices {
		if device.Name == name {
			copied := *device
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDeviceRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, device := range f.devices {
		if device.APIKey == apiKey {
			copied := *device
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDeviceRepo) List(ctx context.Context) ([]*models.Device, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDeviceRepo) ListBySetupID(ctx context.Context, setupID int64) ([]*models.Device, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDeviceRepo) Update(ctx context.Context, device *models.Device) error {
	return errors.New("not implemented")
}

func (f *fakeDeviceRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.devices, id)
	return nil
}

func (f *fakeDeviceRepo) TouchLastSeen(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches[id]++
	return nil
}

func (f *fakeDeviceRepo) touchCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touches[id]
}

// frameCollector gathers emitted frames from a stream under test.
type frameCollector struct {
	mu     sync.Mutex
	frames []Frame
}

func (c *frameCollector) emit(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *frameCollector) snapshot() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *frameCollector) messages() []Frame {
	return c.withEvent(EventMessage)
}

func (c *frameCollector) heartbeats() []Frame {
	return c.withEvent(EventHeartbeat)
}

func (c *frameCollector) withEvent(event string) []Frame {
	var out []Frame
	for _, frame := range c.snapshot() {
		if frame.Event == event {
			out = append(out, frame)
		}
	}
	return out
}
