package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

const (
	MsgNotFound        = "Subscription not found."
	MsgAlreadyPaid     = "Subscription already paid for."
	MsgAwaitingReview  = "Subscription already paid for and awaiting approval."
	msgStatusChanged   = "Subscription status changed, try again."
	msgInvalidArgument = "subscription is required"
)

var paymentBlockingStatuses = []enums.SubscriptionStatus{
	enums.SubscriptionStatusPaid,
	enums.SubscriptionStatusPending,
}

// Coordinator owns subscription status for the payment lifecycle.
type Coordinator interface {
	WithTx(tx *gorm.DB) Coordinator
	GuardForPayment(sub *models.Subscription) error
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindByIDWithTombstone(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	MarkPending(ctx context.Context, sub *models.Subscription) error
	SettlePaid(ctx context.Context, sub *models.Subscription) error
	MarkPaid(ctx context.Context, sub *models.Subscription) error
	MarkDisproved(ctx context.Context, sub *models.Subscription) error
	Retire(ctx context.Context, sub *models.Subscription) error
}

type coordinator struct {
	repo Repository
}

// NewCoordinator wires a coordinator with the provided repository.
func NewCoordinator(repo Repository) (Coordinator, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	return &coordinator{repo: repo}, nil
}

func (c *coordinator) WithTx(tx *gorm.DB) Coordinator {
	if tx == nil {
		return c
	}
	return &coordinator{repo: c.repo.WithTx(tx)}
}

// GuardForPayment rejects a new payment against a subscription that is paid
// or already has a payment awaiting review.
func (c *coordinator) GuardForPayment(sub *models.Subscription) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	}
	switch sub.Status {
	case enums.SubscriptionStatusPaid:
		return pkgerrors.New(pkgerrors.CodeConflict, MsgAlreadyPaid)
	case enums.SubscriptionStatusPending:
		return pkgerrors.New(pkgerrors.CodeConflict, MsgAwaitingReview)
	}
	return nil
}

func (c *coordinator) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	}
	sub, err := c.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return sub, nil
}

func (c *coordinator) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return sub, nil
}

func (c *coordinator) FindByIDWithTombstone(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := c.repo.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return sub, nil
}

// MarkPending records that a payment awaits review. The guard is re-checked
// in the same statement as the write.
func (c *coordinator) MarkPending(ctx context.Context, sub *models.Subscription) error {
	return c.guardedUpdate(ctx, sub, enums.SubscriptionStatusPending)
}

// SettlePaid marks a subscription paid by a fresh payment, failing like
// GuardForPayment if another payment got there first.
func (c *coordinator) SettlePaid(ctx context.Context, sub *models.Subscription) error {
	return c.guardedUpdate(ctx, sub, enums.SubscriptionStatusPaid)
}

// MarkPaid marks a subscription paid after an admin approval. A retired
// subscription is brought back.
func (c *coordinator) MarkPaid(ctx context.Context, sub *models.Subscription) error {
	if sub == nil || sub.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidArgument)
	}

	var (
		rows int64
		err  error
	)
	if sub.Retired() {
		rows, err = c.repo.Restore(ctx, sub.ID, enums.SubscriptionStatusPaid)
	} else {
		rows, err = c.repo.UpdateStatus(ctx, sub.ID, enums.SubscriptionStatusPaid)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark subscription paid")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	}

	sub.Status = enums.SubscriptionStatusPaid
	sub.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (c *coordinator) MarkDisproved(ctx context.Context, sub *models.Subscription) error {
	if sub == nil || sub.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidArgument)
	}
	rows, err := c.repo.UpdateStatus(ctx, sub.ID, enums.SubscriptionStatusDisproved)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark subscription disproved")
	}
	if rows == 0 && !sub.Retired() {
		return pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	}
	sub.Status = enums.SubscriptionStatusDisproved
	return nil
}

// Retire tombstones the subscription. Retiring an already retired
// subscription is a no-op.
func (c *coordinator) Retire(ctx context.Context, sub *models.Subscription) error {
	if sub == nil || sub.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidArgument)
	}
	if sub.Retired() {
		return nil
	}
	if _, err := c.repo.Retire(ctx, sub.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retire subscription")
	}
	reloaded, err := c.repo.FindByIDUnscoped(ctx, sub.ID)
	if err != nil {
		return mapLookupError(err)
	}
	sub.DeletedAt = reloaded.DeletedAt
	return nil
}

func (c *coordinator) guardedUpdate(ctx context.Context, sub *models.Subscription, status enums.SubscriptionStatus) error {
	if sub == nil || sub.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidArgument)
	}

	rows, err := c.repo.UpdateStatusUnlessIn(ctx, sub.ID, status, paymentBlockingStatuses...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription status")
	}
	if rows > 0 {
		sub.Status = status
		return nil
	}

	current, err := c.repo.FindByID(ctx, sub.ID)
	if err != nil {
		return mapLookupError(err)
	}
	sub.Status = current.Status
	if guardErr := c.GuardForPayment(current); guardErr != nil {
		return guardErr
	}
	return pkgerrors.New(pkgerrors.CodeConflict, msgStatusChanged)
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
}
