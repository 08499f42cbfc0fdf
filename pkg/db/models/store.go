package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// Store is the tenant artifact a paid subscription unlocks.
type Store struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID         `gorm:"column:owner_id;type:uuid;not null"`
	Name      string            `gorm:"column:name;not null"`
	Status    enums.StoreStatus `gorm:"column:status;type:store_status;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
