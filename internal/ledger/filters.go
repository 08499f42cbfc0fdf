package ledger

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
)

// Filters narrows a payment query and picks the relations to eager-load.
type Filters struct {
	UserID *uuid.UUID
	Medium *enums.PaymentMedium
	Status *enums.PaymentStatus

	WithUser         bool
	WithSubscription bool
	WithPlan         bool
	WithBank         bool

	Page pagination.Params
}

// QueryResult is one page of payments.
type QueryResult struct {
	Payments   []models.Payment
	NextCursor string
}
