package banks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
)

// Repository reads bank reference data.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a banks repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bank, error) {
	var bank models.Bank
	if err := r.db.WithContext(ctx).First(&bank, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bank, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&banks).Error; err != nil {
		return nil, err
	}
	return banks, nil
}
