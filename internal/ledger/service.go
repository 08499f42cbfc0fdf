package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
)

const referenceConstraint = "ux_payments_reference"

const (
	msgReferenceUsed    = "Transaction has been approved before."
	msgPaymentNotFound  = "Payment not found."
	msgPaymentSucceeded = "This payment was successful."
)

// Service records payments and enforces their status rules.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Create(ctx context.Context, draft *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	Query(ctx context.Context, filters Filters) (*QueryResult, error)
	UpdateStatus(ctx context.Context, payment *models.Payment, status enums.PaymentStatus) error
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Create inserts a new payment. The reference unique index is the only
// duplicate check, so two racing inserts cannot both succeed.
func (s *service) Create(ctx context.Context, draft *models.Payment) error {
	if err := validateDraft(draft); err != nil {
		return err
	}
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}

	if err := s.repo.Create(ctx, draft); err != nil {
		if db.IsUniqueViolation(err, referenceConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msgReferenceUsed)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}
	return nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "load payment")
	}
	return payment, nil
}

func (s *service) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	payment, err := s.repo.FindByReference(ctx, trimmed)
	if err != nil {
		return nil, mapLookupError(err, "load payment by reference")
	}
	return payment, nil
}

func (s *service) Query(ctx context.Context, filters Filters) (*QueryResult, error) {
	if filters.Medium != nil && !filters.Medium.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Enter a valid payment medium.")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Enter a valid payment status.")
	}

	cursor, err := pagination.ParseCursor(filters.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(filters.Page.Limit)
	payments, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(filters.Page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}

	result := &QueryResult{Payments: payments}
	if len(payments) > limit {
		result.Payments = payments[:limit]
		last := result.Payments[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

// UpdateStatus moves payment to status unless it already succeeded. The check
// and the write are one statement, so of two racing callers only one can move
// a payment into success and the other sees a state conflict.
func (s *service) UpdateStatus(ctx context.Context, payment *models.Payment, status enums.PaymentStatus) error {
	if payment == nil || payment.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", status))
	}

	rows, err := s.repo.UpdateStatusUnlessSettled(ctx, payment.ID, status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
	}
	if rows == 0 {
		current, err := s.repo.FindByID(ctx, payment.ID)
		if err != nil {
			return mapLookupError(err, "reload payment")
		}
		payment.Status = current.Status
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgPaymentSucceeded).
			WithDetails(map[string]any{"status": current.Status})
	}

	payment.Status = status
	return nil
}

func validateDraft(draft *models.Payment) error {
	if draft == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	if draft.UserID == uuid.Nil || draft.SubscriptionID == uuid.Nil || draft.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user, subscription and store are required")
	}
	if draft.Status != enums.PaymentStatusPending && draft.Status != enums.PaymentStatusSuccess {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment cannot start as %q", draft.Status))
	}

	switch draft.Medium {
	case enums.PaymentMediumPaystack:
		if draft.Reference == nil || strings.TrimSpace(*draft.Reference) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "reference is required for paystack payments")
		}
		trimmed := strings.TrimSpace(*draft.Reference)
		draft.Reference = &trimmed
	case enums.PaymentMediumBankTransfer:
		if strings.TrimSpace(draft.Depositor) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "depositor is required for bank transfers")
		}
		if draft.BankID == nil || *draft.BankID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "bank is required for bank transfers")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "Enter a valid payment medium.")
	}
	return nil
}

func mapLookupError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msgPaymentNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
