package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmaged/signfleet/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

const deviceColumns = `id, name, location, api_key, last_seen, setup_id`

func (r *PostgresDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (name, location, api_key, last_seen, setup_id)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		device.Name,
		device.Location,
		device.APIKey,
		device.LastSeen,
		device.SetupID,
	).Scan(&device.ID)

	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresDeviceRepository) GetByName(ctx context.Context, name string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE name = $1`
	return r.getOne(ctx, query, name)
}

func (r *PostgresDeviceRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE api_key = $1`
	return r.getOne(ctx, query, apiKey)
}

func (r *PostgresDeviceRepository) getOne(ctx context.Context, query string, arg any) (*models.Device, error) {
	var device models.Device
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&device.ID,
		&device.Name,
		&device.Location,
		&device.APIKey,
		&device.LastSeen,
		&device.SetupID,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) List(ctx context.Context) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY id ASC`
	return r.listDevices(ctx, query)
}

func (r *PostgresDeviceRepository) ListBySetupID(ctx context.Context, setupID int64) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE setup_id = $1 ORDER BY id ASC`
	return r.listDevices(ctx, query, setupID)
}

func (r *PostgresDeviceRepository) listDevices(ctx context.Context, query string, args ...any) ([]*models.Device, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		var device models.Device
		err := rows.Scan(
			&device.ID,
			&device.Name,
			&device.Location,
			&device.APIKey,
			&device.LastSeen,
			&device.SetupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, &device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}

func (r *PostgresDeviceRepository) Update(ctx context.Context, device *models.Device) error {
	query := `UPDATE devices
	          SET name = $1, location = $2, setup_id = $3
	          WHERE id = $4`

	result, err := r.pool.Exec(ctx, query,
		device.Name,
		device.Location,
		device.SetupID,
		device.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDeviceRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM devices WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDeviceRepository) TouchLastSeen(ctx context.Context, id int64) error {
	query := `UPDATE devices SET last_seen = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
