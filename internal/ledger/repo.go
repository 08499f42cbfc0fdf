package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
)

// Repository manages persistence for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	List(ctx context.Context, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Payment, error)
	UpdateStatusUnlessSettled(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Medium != nil {
		query = query.Where("medium = ?", *filters.Medium)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	if filters.WithUser {
		query = query.Preload("User")
	}
	if filters.WithBank {
		query = query.Preload("Bank")
	}
	if filters.WithSubscription || filters.WithPlan {
		withPlan := filters.WithPlan
		// Retired subscriptions stay visible on the payments that touched them.
		query = query.Preload("Subscription", func(tx *gorm.DB) *gorm.DB {
			tx = tx.Unscoped()
			if withPlan {
				tx = tx.Preload("Plan")
			}
			return tx
		})
	}

	var payments []models.Payment
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// UpdateStatusUnlessSettled moves a payment that is not yet successful. It
// reports zero rows when the payment is missing or already settled.
func (r *repository) UpdateStatusUnlessSettled(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusSuccess).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
