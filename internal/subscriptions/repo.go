package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// Repository manages persistence for subscriptions. Lookups skip retired rows
// unless the method says otherwise.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error)
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) (int64, error)
	UpdateStatusUnlessIn(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus, blocked ...enums.SubscriptionStatus) (int64, error)
	Retire(ctx context.Context, id uuid.UUID) (int64, error)
	Restore(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Unscoped().First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateStatusUnlessIn(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus, blocked ...enums.SubscriptionStatus) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id)
	if len(blocked) > 0 {
		query = query.Where("status NOT IN ?", blocked)
	}
	result := query.Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

func (r *repository) Retire(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repository) Restore(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deleted_at": nil,
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
