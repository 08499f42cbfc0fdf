package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/internal/ledger"
	"github.com/angelmondragon/storepay-backend/internal/stores"
	"github.com/angelmondragon/storepay-backend/internal/subscriptions"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/metrics"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
	"github.com/angelmondragon/storepay-backend/pkg/redis"
)

const (
	MsgGatewaySettled      = "Payment successful, your app will be ready in minutes..."
	MsgTransferSubmitted   = "Payment submitted and awaiting verification."
	MsgPaymentApproved     = "Payment approved, subscription approved"
	MsgPaymentDisproved    = "Payment disproved, subscription revoked"
	MsgNoPayments          = "No payment record found."
	MsgForbidden           = "Forbidden action."
	MsgNotVerified         = "Payment not verified from Paystack."
	MsgInvalidMedium       = "Enter a valid payment medium."
	MsgInvalidStatus       = "Enter a valid payment status."
	MsgReferenceUsed       = "Transaction has been approved before."
	msgReferenceRequired   = "Enter the payment reference."
	msgDepositorRequired   = "Enter the depositor's name."
	msgSubscriptionMissing = "Select a subscription to pay for."
	msgBusy                = "Payment is being processed, try again."
)

// Verifier confirms a gateway reference. A nil error with false means the
// gateway declined; an error means the gateway could not be asked.
type Verifier interface {
	Confirm(ctx context.Context, reference string) (bool, error)
}

// Locker serializes work per subscription across replicas.
type Locker interface {
	WithLock(ctx context.Context, id string, fn func() error) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userDirectory interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

type bankLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bank, error)
}

// Service runs the payment lifecycle: submissions, admin review and listings.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitInput) (*Result, error)
	SubmitGateway(ctx context.Context, actor Actor, input GatewayInput) (*Result, error)
	SubmitBankTransfer(ctx context.Context, actor Actor, input BankTransferInput) (*Result, error)
	Approve(ctx context.Context, actor Actor, paymentID uuid.UUID) (*Result, error)
	Disprove(ctx context.Context, actor Actor, paymentID uuid.UUID) (*Result, error)
	ListForUser(ctx context.Context, actor Actor, page pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, actor Actor, page pagination.Params) (*ListResult, error)
	Query(ctx context.Context, actor Actor, input QueryInput) (*ListResult, error)
}

type ServiceParams struct {
	DB            txRunner
	Ledger        ledger.Service
	Subscriptions subscriptions.Coordinator
	Stores        stores.Gate
	Banks         bankLookup
	Users         userDirectory
	Verifier      Verifier
	Outbox        eventEmitter
	// Lock is optional; the conditional updates are authoritative without it.
	Lock    Locker
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
}

type service struct {
	db       txRunner
	ledger   ledger.Service
	subs     subscriptions.Coordinator
	stores   stores.Gate
	banks    bankLookup
	users    userDirectory
	verifier Verifier
	outbox   eventEmitter
	lock     Locker
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the payment workflow.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Subscriptions == nil:
		return nil, fmt.Errorf("subscription coordinator required")
	case params.Stores == nil:
		return nil, fmt.Errorf("store gate required")
	case params.Banks == nil:
		return nil, fmt.Errorf("bank lookup required")
	case params.Users == nil:
		return nil, fmt.Errorf("user directory required")
	case params.Verifier == nil:
		return nil, fmt.Errorf("payment verifier required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       params.DB,
		ledger:   params.Ledger,
		subs:     params.Subscriptions,
		stores:   params.Stores,
		banks:    params.Banks,
		users:    params.Users,
		verifier: params.Verifier,
		outbox:   params.Outbox,
		lock:     params.Lock,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Submit dispatches on the payment medium.
func (s *service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*Result, error) {
	medium, err := enums.ParsePaymentMedium(input.Medium)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgInvalidMedium)
	}
	switch medium {
	case enums.PaymentMediumPaystack:
		return s.SubmitGateway(ctx, actor, GatewayInput{
			SubscriptionID: input.SubscriptionID,
			Reference:      input.Reference,
		})
	case enums.PaymentMediumBankTransfer:
		return s.SubmitBankTransfer(ctx, actor, BankTransferInput{
			SubscriptionID: input.SubscriptionID,
			BankID:         input.BankID,
			Depositor:      input.Depositor,
		})
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgInvalidMedium)
}

// SubmitGateway settles a subscription with a gateway-verified reference.
// The verifier is asked before any transaction or lock is taken.
func (s *service) SubmitGateway(ctx context.Context, actor Actor, input GatewayInput) (result *Result, err error) {
	defer func() { s.record("gateway", err) }()

	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgReferenceRequired)
	}
	if input.SubscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgSubscriptionMissing)
	}
	ctx = s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, actor.UserID.String()), input.SubscriptionID.String())

	if err := s.ensureReferenceUnused(ctx, reference); err != nil {
		return nil, err
	}
	sub, err := s.subs.FindForUser(ctx, input.SubscriptionID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.subs.GuardForPayment(sub); err != nil {
		return nil, err
	}
	payer, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.verify(ctx, reference); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Medium:         enums.PaymentMediumPaystack,
		UserID:         actor.UserID,
		SubscriptionID: sub.ID,
		StoreID:        sub.StoreID,
		PricePoint:     sub.PricePoint,
		Reference:      &reference,
		Depositor:      payer.FullName(),
		Status:         enums.PaymentStatusSuccess,
	}
	err = s.transition(ctx, sub.ID, func(tx *gorm.DB) error {
		if err := s.subs.WithTx(tx).SettlePaid(ctx, sub); err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		if err := s.stores.WithTx(tx).Unlock(ctx, sub.StoreID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, gatewayReceivedEvent(actor, payment))
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithPaymentID(ctx, payment.ID.String()), "gateway payment settled")
	return &Result{Message: MsgGatewaySettled, Payment: FromModel(payment)}, nil
}

// SubmitBankTransfer records a manual transfer awaiting admin review.
func (s *service) SubmitBankTransfer(ctx context.Context, actor Actor, input BankTransferInput) (result *Result, err error) {
	defer func() { s.record("bank_transfer", err) }()

	depositor := strings.TrimSpace(input.Depositor)
	if depositor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgDepositorRequired)
	}
	if input.SubscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgSubscriptionMissing)
	}
	ctx = s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, actor.UserID.String()), input.SubscriptionID.String())

	bank, err := s.banks.FindByID(ctx, input.BankID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.FindForUser(ctx, input.SubscriptionID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.subs.GuardForPayment(sub); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Medium:         enums.PaymentMediumBankTransfer,
		UserID:         actor.UserID,
		SubscriptionID: sub.ID,
		StoreID:        sub.StoreID,
		PricePoint:     sub.PricePoint,
		Depositor:      depositor,
		BankID:         &bank.ID,
		Status:         enums.PaymentStatusPending,
	}
	err = s.transition(ctx, sub.ID, func(tx *gorm.DB) error {
		if err := s.subs.WithTx(tx).MarkPending(ctx, sub); err != nil {
			return err
		}
		return s.ledger.WithTx(tx).Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithPaymentID(ctx, payment.ID.String()), "bank transfer submitted")
	return &Result{Message: MsgTransferSubmitted, Payment: FromModel(payment)}, nil
}

// Approve marks a payment successful, restoring a revoked subscription and
// unlocking its store.
func (s *service) Approve(ctx context.Context, actor Actor, paymentID uuid.UUID) (result *Result, err error) {
	defer func() { s.record("approve", err) }()

	payment, err := s.loadForReview(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentID(s.logg.WithUserID(ctx, actor.UserID.String()), payment.ID.String())

	err = s.transition(ctx, payment.SubscriptionID, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).UpdateStatus(ctx, payment, enums.PaymentStatusSuccess); err != nil {
			return err
		}
		subs := s.subs.WithTx(tx)
		sub, err := subs.FindByIDWithTombstone(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if err := subs.MarkPaid(ctx, sub); err != nil {
			return err
		}
		if err := s.stores.WithTx(tx).Unlock(ctx, sub.StoreID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, bankTransferApprovedEvent(actor, payment))
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment approved")
	return &Result{Message: MsgPaymentApproved, Payment: FromModel(payment)}, nil
}

// Disprove rejects a payment, revokes its subscription and locks the store.
func (s *service) Disprove(ctx context.Context, actor Actor, paymentID uuid.UUID) (result *Result, err error) {
	defer func() { s.record("disprove", err) }()

	payment, err := s.loadForReview(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentID(s.logg.WithUserID(ctx, actor.UserID.String()), payment.ID.String())

	err = s.transition(ctx, payment.SubscriptionID, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).UpdateStatus(ctx, payment, enums.PaymentStatusDisproved); err != nil {
			return err
		}
		subs := s.subs.WithTx(tx)
		sub, err := subs.FindByIDWithTombstone(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if err := subs.MarkDisproved(ctx, sub); err != nil {
			return err
		}
		if err := subs.Retire(ctx, sub); err != nil {
			return err
		}
		return s.stores.WithTx(tx).Lock(ctx, sub.StoreID)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment disproved")
	return &Result{Message: MsgPaymentDisproved, Payment: FromModel(payment)}, nil
}

// ListForUser returns the caller's own payments.
func (s *service) ListForUser(ctx context.Context, actor Actor, page pagination.Params) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	userID := actor.UserID
	return s.list(ctx, ledger.Filters{
		UserID:           &userID,
		WithSubscription: true,
		WithBank:         true,
		Page:             page,
	}, true)
}

// ListAll returns every payment for platform admins.
func (s *service) ListAll(ctx context.Context, actor Actor, page pagination.Params) (*ListResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.list(ctx, ledger.Filters{
		WithUser:         true,
		WithSubscription: true,
		WithPlan:         true,
		WithBank:         true,
		Page:             page,
	}, true)
}

// Query filters payments by medium and status for platform admins.
func (s *service) Query(ctx context.Context, actor Actor, input QueryInput) (*ListResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	medium, err := enums.ParsePaymentMedium(input.Medium)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgInvalidMedium)
	}
	status, err := enums.ParsePaymentStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgInvalidStatus)
	}
	return s.list(ctx, ledger.Filters{
		Medium:           &medium,
		Status:           &status,
		WithUser:         true,
		WithSubscription: true,
		WithPlan:         true,
		WithBank:         true,
		Page:             input.Page,
	}, false)
}

func (s *service) list(ctx context.Context, filters ledger.Filters, emptyIsNotFound bool) (*ListResult, error) {
	page, err := s.ledger.Query(ctx, filters)
	if err != nil {
		return nil, err
	}
	if emptyIsNotFound && len(page.Payments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgNoPayments)
	}
	return &ListResult{Payments: fromModels(page.Payments), Cursor: page.NextCursor}, nil
}

func (s *service) loadForReview(ctx context.Context, actor Actor, paymentID uuid.UUID) (*models.Payment, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.ledger.FindByID(ctx, paymentID)
}

// requireAdmin consults the stored role, never the token claim.
func (s *service) requireAdmin(ctx context.Context, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, MsgForbidden)
	}
	ok, err := s.users.IsPlatformAdmin(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, MsgForbidden)
	}
	return nil
}

// ensureReferenceUnused is a fast path only; the unique index decides.
func (s *service) ensureReferenceUnused(ctx context.Context, reference string) error {
	_, err := s.ledger.FindByReference(ctx, reference)
	switch {
	case err == nil:
		return pkgerrors.New(pkgerrors.CodeConflict, MsgReferenceUsed)
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil
	default:
		return err
	}
}

func (s *service) verify(ctx context.Context, reference string) error {
	started := s.now()
	confirmed, err := s.verifier.Confirm(ctx, reference)
	elapsed := s.now().Sub(started)
	logCtx := s.logg.WithField(ctx, "verification_ms", elapsed.Milliseconds())

	switch {
	case err != nil:
		s.metrics.ObserveVerification(string(enums.PaymentMediumPaystack), metrics.OutcomeError, elapsed)
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"verification_outcome": "unavailable",
			"error":                err.Error(),
		}), "payment verification failed")
		return pkgerrors.Wrap(pkgerrors.CodeVerificationFailed, err, MsgNotVerified)
	case !confirmed:
		s.metrics.ObserveVerification(string(enums.PaymentMediumPaystack), metrics.OutcomeRejected, elapsed)
		s.logg.Info(s.logg.WithField(logCtx, "verification_outcome", "declined"), "payment verification declined")
		return pkgerrors.New(pkgerrors.CodeVerificationFailed, MsgNotVerified)
	}
	s.metrics.ObserveVerification(string(enums.PaymentMediumPaystack), metrics.OutcomeSuccess, elapsed)
	return nil
}

// transition runs fn in one transaction, holding the subscription lock when
// one is configured.
func (s *service) transition(ctx context.Context, subscriptionID uuid.UUID, fn func(tx *gorm.DB) error) error {
	run := func() error { return s.db.WithTx(ctx, fn) }
	if s.lock == nil {
		return mapTxError(run())
	}
	err := s.lock.WithLock(ctx, subscriptionID.String(), run)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msgBusy)
	}
	return mapTxError(err)
}

func (s *service) record(event string, err error) {
	switch {
	case err == nil:
		s.metrics.IncTransition(event, metrics.OutcomeSuccess)
	case pkgerrors.IsCode(err, pkgerrors.CodeInternal), pkgerrors.As(err) == nil:
		s.metrics.IncTransition(event, metrics.OutcomeError)
	default:
		s.metrics.IncTransition(event, metrics.OutcomeRejected)
	}
}

func mapTxError(err error) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment transition failed")
}
