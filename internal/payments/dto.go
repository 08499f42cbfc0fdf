package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storepay-backend/internal/banks"
	"github.com/angelmondragon/storepay-backend/internal/users"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SubmitInput is the medium-agnostic payment request. Fields that do not
// apply to the chosen medium are ignored.
type SubmitInput struct {
	Medium         string
	SubscriptionID uuid.UUID
	Reference      string
	BankID         uuid.UUID
	Depositor      string
}

type GatewayInput struct {
	SubscriptionID uuid.UUID
	Reference      string
}

type BankTransferInput struct {
	SubscriptionID uuid.UUID
	BankID         uuid.UUID
	Depositor      string
}

// QueryInput filters the admin payment search. Medium and Status are raw
// query values and both are required.
type QueryInput struct {
	Medium string
	Status string
	Page   pagination.Params
}

// Result is what a state-changing operation reports back to the caller.
type Result struct {
	Message string      `json:"message"`
	Payment *PaymentDTO `json:"payment,omitempty"`
}

// ListResult is one page of payments.
type ListResult struct {
	Payments []PaymentDTO `json:"payments"`
	Cursor   string       `json:"cursor"`
}

type PlanDTO struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	PricePoint decimal.Decimal `json:"price_point"`
}

type SubscriptionDTO struct {
	ID         uuid.UUID                `json:"id"`
	StoreID    uuid.UUID                `json:"store_id"`
	PricePoint decimal.Decimal          `json:"price_point"`
	Status     enums.SubscriptionStatus `json:"status"`
	Revoked    bool                     `json:"revoked"`
	Plan       *PlanDTO                 `json:"plan,omitempty"`
}

type PaymentDTO struct {
	ID             uuid.UUID           `json:"id"`
	Medium         enums.PaymentMedium `json:"medium"`
	UserID         uuid.UUID           `json:"user_id"`
	SubscriptionID uuid.UUID           `json:"subscription_id"`
	StoreID        uuid.UUID           `json:"store_id"`
	PricePoint     decimal.Decimal     `json:"price_point"`
	Reference      *string             `json:"reference,omitempty"`
	Depositor      string              `json:"depositor"`
	BankID         *uuid.UUID          `json:"bank_id,omitempty"`
	Status         enums.PaymentStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	User         *users.UserDTO   `json:"user,omitempty"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	Bank         *banks.BankDTO   `json:"bank,omitempty"`
}

func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	dto := &PaymentDTO{
		ID:             p.ID,
		Medium:         p.Medium,
		UserID:         p.UserID,
		SubscriptionID: p.SubscriptionID,
		StoreID:        p.StoreID,
		PricePoint:     p.PricePoint,
		Reference:      p.Reference,
		Depositor:      p.Depositor,
		BankID:         p.BankID,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		User:           users.FromModel(p.User),
		Subscription:   subscriptionFromModel(p.Subscription),
	}
	if p.Bank != nil {
		bank := banks.FromModel(*p.Bank)
		dto.Bank = &bank
	}
	return dto
}

func subscriptionFromModel(s *models.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	dto := &SubscriptionDTO{
		ID:         s.ID,
		StoreID:    s.StoreID,
		PricePoint: s.PricePoint,
		Status:     s.Status,
		Revoked:    s.Retired(),
	}
	if s.Plan != nil {
		dto.Plan = &PlanDTO{ID: s.Plan.ID, Name: s.Plan.Name, PricePoint: s.Plan.PricePoint}
	}
	return dto
}

func fromModels(rows []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
