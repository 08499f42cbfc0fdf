package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// Payment records one attempt by a tenant to pay for a subscription.
type Payment struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Medium         enums.PaymentMedium `gorm:"column:medium;type:payment_medium;not null"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID uuid.UUID           `gorm:"column:subscription_id;type:uuid;not null;index"`
	StoreID        uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	PricePoint     decimal.Decimal     `gorm:"column:price_point;type:numeric(12,2);not null"`
	Reference      *string             `gorm:"column:reference;uniqueIndex:ux_payments_reference"`
	Depositor      string              `gorm:"column:depositor;not null"`
	BankID         *uuid.UUID          `gorm:"column:bank_id;type:uuid"`
	Status         enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	User         *User         `gorm:"foreignKey:UserID"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID"`
	Bank         *Bank         `gorm:"foreignKey:BankID"`
}
