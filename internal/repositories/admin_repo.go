package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmaged/signfleet/internal/models"
)

type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

func (r *PostgresAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	query := `INSERT INTO admins (username, password_hash)
	          VALUES ($1, $2)
	          RETURNING id`

	err := r.pool.QueryRow(ctx, query, admin.Username, admin.PasswordHash).Scan(&admin.ID)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepository) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	query := `SELECT id, username, password_hash FROM admins WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `SELECT id, username, password_hash FROM admins WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *PostgresAdminRepository) getOne(ctx context.Context, query string, arg any) (*models.Admin, error) {
	var admin models.Admin
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}
