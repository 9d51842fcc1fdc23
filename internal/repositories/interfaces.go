package repositories

import (
	"context"

	"github.com/hmaged/signfleet/internal/models"
)

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id int64) (*models.Device, error)
	GetByName(ctx context.Context, name string) (*models.Device, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Device, error)
	List(ctx context.Context) ([]*models.Device, error)
	ListBySetupID(ctx context.Context, setupID int64) ([]*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id int64) error
	TouchLastSeen(ctx context.Context, id int64) error
}

type SetupRepository interface {
	Create(ctx context.Context, input *models.SetupInput) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SetupDetail, error)
	GetByName(ctx context.Context, name string) (*models.Setup, error)
	List(ctx context.Context) ([]*models.SetupDetail, error)
	Update(ctx context.Context, id int64, update *models.SetupUpdate) error
	Delete(ctx context.Context, id int64) error
}

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id int64) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}
