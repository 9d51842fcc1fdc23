package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaged/signfleet/internal/models"
)

// getTestPool connects to the database named by TEST_DATABASE_URL; tests that
// need Postgres are skipped when it is not set.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(pool.Close)
	return pool
}

func newTestDevice(name string) *models.Device {
	return &models.Device{
		Name:     name,
		Location: "test lab",
		APIKey:   "key-" + uuid.New().String(),
		LastSeen: time.Now().UTC(),
	}
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

func cleanupDevice(t *testing.T, repo *PostgresDeviceRepository, id int64) {
	if err := repo.Delete(context.Background(), id); err != nil && err != ErrNotFound {
		t.Logf("warning: failed to cleanup test device %d: %v", id, err)
	}
}

func TestDeviceRepository_CreateAndGet(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)
	ctx := context.Background()

	device := newTestDevice(uniqueName("create"))
	require.NoError(t, repo.Create(ctx, device))
	defer cleanupDevice(t, repo, device.ID)
	assert.NotZero(t, device.ID, "create should populate the ID")

	byID, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, device.Name, byID.Name)
	assert.Equal(t, device.Location, byID.Location)
	assert.Nil(t, byID.SetupID)

	byName, err := repo.GetByName(ctx, device.Name)
	require.NoError(t, err)
	assert.Equal(t, device.ID, byName.ID)

	byKey, err := repo.GetByAPIKey(ctx, device.APIKey)
	require.NoError(t, err)
	assert.Equal(t, device.ID, byKey.ID)
}

func TestDeviceRepository_GetMissing(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByAPIKey(ctx, "no-such-key-"+uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeviceRepository_Update(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)
	ctx := context.Background()

	device := newTestDevice(uniqueName("update"))
	require.NoError(t, repo.Create(ctx, device))
	defer cleanupDevice(t, repo, device.ID)

	device.Name = uniqueName("renamed")
	device.Location = "rooftop"
	require.NoError(t, repo.Update(ctx, device))

	updated, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, device.Name, updated.Name)
	assert.Equal(t, "rooftop", updated.Location)
}

func TestDeviceRepository_UpdateMissing(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)

	missing := newTestDevice(uniqueName("ghost"))
	missing.ID = -1
	assert.ErrorIs(t, repo.Update(context.Background(), missing), ErrNotFound)
}

func TestDeviceRepository_Delete(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)
	ctx := context.Background()

	device := newTestDevice(uniqueName("delete"))
	require.NoError(t, repo.Create(ctx, device))

	require.NoError(t, repo.Delete(ctx, device.ID))

	_, err := repo.GetByID(ctx, device.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, device.ID), ErrNotFound)
}

func TestDeviceRepository_TouchLastSeen(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresDeviceRepository(pool)
	ctx := context.Background()

	device := newTestDevice(uniqueName("touch"))
	device.LastSeen = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, device))
	defer cleanupDevice(t, repo, device.ID)

	require.NoError(t, repo.TouchLastSeen(ctx, device.ID))

	touched, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, touched.LastSeen.After(device.LastSeen), "last_seen should advance")
}
