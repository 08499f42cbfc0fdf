package stores

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// Repository manages persistence for stores.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	SetStatusIfDifferent(ctx context.Context, id uuid.UUID, status enums.StoreStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stores repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) SetStatusIfDifferent(ctx context.Context, id uuid.UUID, status enums.StoreStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND status <> ?", id, status).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
