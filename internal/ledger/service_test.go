package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storepay-backend/pkg/db"
	"github.com/angelmondragon/storepay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
	"github.com/angelmondragon/storepay-backend/pkg/pagination"
)

func newTestLedger(t *testing.T) (Service, *db.Client, dbtest.Fixture) {
	t.Helper()
	client := dbtest.Open(t)
	fixture := dbtest.Seed(t, client)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	return svc, client, fixture
}

func gatewayDraft(f dbtest.Fixture, reference string) *models.Payment {
	return &models.Payment{
		Medium:         enums.PaymentMediumPaystack,
		UserID:         f.User.ID,
		SubscriptionID: f.Subscription.ID,
		StoreID:        f.Store.ID,
		PricePoint:     f.Subscription.PricePoint,
		Reference:      &reference,
		Depositor:      f.User.FullName(),
		Status:         enums.PaymentStatusSuccess,
	}
}

func transferDraft(f dbtest.Fixture) *models.Payment {
	return &models.Payment{
		Medium:         enums.PaymentMediumBankTransfer,
		UserID:         f.User.ID,
		SubscriptionID: f.Subscription.ID,
		StoreID:        f.Store.ID,
		PricePoint:     f.Subscription.PricePoint,
		Depositor:      "Ada Obi",
		BankID:         &f.Bank.ID,
		Status:         enums.PaymentStatusPending,
	}
}

func TestCreateAndFind(t *testing.T) {
	svc, _, f := newTestLedger(t)
	ctx := context.Background()

	draft := gatewayDraft(f, " ref-001 ")
	require.NoError(t, svc.Create(ctx, draft))
	require.NotEqual(t, uuid.Nil, draft.ID)

	byID, err := svc.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, byID.Status)
	assert.True(t, byID.PricePoint.Equal(decimal.NewFromInt(5000)))

	byRef, err := svc.FindByReference(ctx, "ref-001")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, byRef.ID)
}

func TestCreateRejectsReusedReference(t *testing.T) {
	svc, _, f := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, gatewayDraft(f, "ref-dup")))

	err := svc.Create(ctx, gatewayDraft(f, "ref-dup"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, msgReferenceUsed, pkgerrors.As(err).Message())
}

func TestCreateConcurrentReferenceOnlyOnce(t *testing.T) {
	svc, client, f := newTestLedger(t)
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Create(ctx, gatewayDraft(f, "ref-race"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, client.DB().Model(&models.Payment{}).Where("reference = ?", "ref-race").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateValidatesMediumFields(t *testing.T) {
	svc, _, f := newTestLedger(t)
	ctx := context.Background()

	noRef := gatewayDraft(f, "  ")
	noDepositor := transferDraft(f)
	noDepositor.Depositor = ""
	noBank := transferDraft(f)
	noBank.BankID = nil
	badMedium := transferDraft(f)
	badMedium.Medium = "cash"
	disproved := transferDraft(f)
	disproved.Status = enums.PaymentStatusDisproved

	for name, draft := range map[string]*models.Payment{
		"missing reference": noRef,
		"missing depositor": noDepositor,
		"missing bank":      noBank,
		"unknown medium":    badMedium,
		"disproved start":   disproved,
	} {
		err := svc.Create(ctx, draft)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: expected validation error, got %v", name, err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	_, err := svc.FindByID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusNeverLeavesSuccess(t *testing.T) {
	svc, _, f := newTestLedger(t)
	ctx := context.Background()

	payment := transferDraft(f)
	require.NoError(t, svc.Create(ctx, payment))

	require.NoError(t, svc.UpdateStatus(ctx, payment, enums.PaymentStatusDisproved))
	assert.Equal(t, enums.PaymentStatusDisproved, payment.Status)

	require.NoError(t, svc.UpdateStatus(ctx, payment, enums.PaymentStatusSuccess))
	assert.Equal(t, enums.PaymentStatusSuccess, payment.Status)

	stale := &models.Payment{ID: payment.ID, Status: enums.PaymentStatusPending}
	err := svc.UpdateStatus(ctx, stale, enums.PaymentStatusDisproved)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.PaymentStatusSuccess, stale.Status)

	err = svc.UpdateStatus(ctx, payment, enums.PaymentStatusSuccess)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	stored, err := svc.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, stored.Status)
}

func TestUpdateStatusMissingPayment(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	err := svc.UpdateStatus(context.Background(), &models.Payment{ID: uuid.New()}, enums.PaymentStatusSuccess)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestQueryFiltersAndPreloads(t *testing.T) {
	svc, client, f := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, gatewayDraft(f, "ref-q1")))
	transfer := transferDraft(f)
	require.NoError(t, svc.Create(ctx, transfer))

	// Retired subscriptions must still load on their payments.
	require.NoError(t, client.DB().Delete(&models.Subscription{}, "id = ?", f.Subscription.ID).Error)

	medium := enums.PaymentMediumBankTransfer
	status := enums.PaymentStatusPending
	result, err := svc.Query(ctx, Filters{
		Medium:           &medium,
		Status:           &status,
		WithUser:         true,
		WithSubscription: true,
		WithPlan:         true,
		WithBank:         true,
	})
	require.NoError(t, err)
	require.Len(t, result.Payments, 1)

	got := result.Payments[0]
	assert.Equal(t, transfer.ID, got.ID)
	require.NotNil(t, got.User)
	assert.Equal(t, f.User.ID, got.User.ID)
	require.NotNil(t, got.Bank)
	assert.Equal(t, f.Bank.ID, got.Bank.ID)
	require.NotNil(t, got.Subscription)
	assert.True(t, got.Subscription.Retired())
	require.NotNil(t, got.Subscription.Plan)
	assert.Equal(t, f.Plan.ID, got.Subscription.Plan.ID)
	assert.Empty(t, result.NextCursor)

	userID := f.Admin.ID
	empty, err := svc.Query(ctx, Filters{UserID: &userID})
	require.NoError(t, err)
	assert.Empty(t, empty.Payments)
}

func TestQueryPaginates(t *testing.T) {
	svc, client, f := newTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		draft := gatewayDraft(f, uuid.NewString())
		draft.ID = uuid.New()
		draft.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, client.DB().Create(draft).Error)
	}

	first, err := svc.Query(ctx, Filters{Page: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Payments, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Payments[0].CreatedAt.After(first.Payments[1].CreatedAt))

	second, err := svc.Query(ctx, Filters{Page: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Payments, 1)
	assert.Empty(t, second.NextCursor)
	assert.True(t, second.Payments[0].CreatedAt.Equal(base))
}

func TestQueryRejectsBadFilters(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	medium := enums.PaymentMedium("cash")
	_, err := svc.Query(context.Background(), Filters{Medium: &medium})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Query(context.Background(), Filters{Page: pagination.Params{Cursor: "not-base64!"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
