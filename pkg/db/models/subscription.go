package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// Subscription ties a tenant's store to a plan. A disproved subscription is
// retired through DeletedAt rather than removed.
type Subscription struct {
	ID         uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID    uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	PlanID     *uuid.UUID               `gorm:"column:plan_id;type:uuid"`
	PricePoint decimal.Decimal          `gorm:"column:price_point;type:numeric(12,2);not null"`
	Status     enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt           `gorm:"column:deleted_at;index"`

	Plan *Plan `gorm:"foreignKey:PlanID"`
}

// Retired reports whether the subscription carries a tombstone.
func (s *Subscription) Retired() bool {
	return s != nil && s.DeletedAt.Valid
}
