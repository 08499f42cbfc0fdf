package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storepay-backend/internal/users"
	"github.com/angelmondragon/storepay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storepay-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	keys map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]bool{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	if s.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "sp:idempotency:" + scope + ":" + id
}

type idleSource struct{}

func (idleSource) Receive(ctx context.Context, _ func(context.Context, *pubsub.Message)) error {
	<-ctx.Done()
	return nil
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) CreateOnce(context.Context, *models.Notification) (bool, error) {
	w.calls++
	return false, errors.New("insert failed")
}

type staticAdmins []uuid.UUID

func (a staticAdmins) PlatformAdminIDs(context.Context) ([]uuid.UUID, error) {
	return a, nil
}

type consumerHarness struct {
	consumer *Consumer
	store    *memoryStore
	fixture  dbtest.Fixture
	count    func(t *testing.T, userID uuid.UUID) int64
}

func newConsumerHarness(t *testing.T) *consumerHarness {
	t.Helper()
	client := dbtest.Open(t)
	f := dbtest.Seed(t, client)

	directory, err := users.NewDirectory(users.NewRepository(client.DB()))
	require.NoError(t, err)
	store := newMemoryStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)

	consumer, err := NewConsumer(ConsumerParams{
		Repo:         NewRepository(client.DB()),
		Admins:       directory,
		Subscription: idleSource{},
		Idempotency:  manager,
		Logger:       logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &consumerHarness{
		consumer: consumer,
		store:    store,
		fixture:  f,
		count: func(t *testing.T, userID uuid.UUID) int64 {
			t.Helper()
			var n int64
			require.NoError(t, client.DB().Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n).Error)
			return n
		},
	}
}

func paymentMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   uuid.NewString(),
		Data: envelope,
		Attributes: map[string]string{
			"event_id":   eventID.String(),
			"event_type": string(eventType),
		},
	}
}

func gatewayPayload(f dbtest.Fixture) payloads.GatewayPaymentReceivedEvent {
	return payloads.GatewayPaymentReceivedEvent{PaymentEvent: payloads.PaymentEvent{
		PaymentID:      uuid.New(),
		SubscriptionID: f.Subscription.ID,
		StoreID:        f.Store.ID,
		PayerID:        f.User.ID,
		Medium:         enums.PaymentMediumPaystack,
		Status:         enums.PaymentStatusSuccess,
		PricePoint:     decimal.NewFromInt(5000),
		Reference:      "ref-001",
		Depositor:      "Ada Obi",
		NotifyAdmins:   true,
	}}
}

func TestConsumerNotifiesPayerAndAdmins(t *testing.T) {
	h := newConsumerHarness(t)
	ctx := context.Background()
	eventID := uuid.New()
	msg := paymentMessage(t, enums.EventGatewayPaymentReceived, eventID, gatewayPayload(h.fixture))

	result := h.consumer.process(ctx, msg)
	assert.True(t, result.ack)
	assert.EqualValues(t, 1, h.count(t, h.fixture.User.ID))
	assert.EqualValues(t, 1, h.count(t, h.fixture.Admin.ID))

	// Redelivery is dropped by the idempotency key.
	result = h.consumer.process(ctx, msg)
	assert.True(t, result.ack)
	assert.EqualValues(t, 1, h.count(t, h.fixture.User.ID))

	// Without the key the unique delivery index still holds.
	h.store.keys = map[string]bool{}
	result = h.consumer.process(ctx, msg)
	assert.True(t, result.ack)
	assert.EqualValues(t, 1, h.count(t, h.fixture.User.ID))
	assert.EqualValues(t, 1, h.count(t, h.fixture.Admin.ID))
}

func TestConsumerApprovalNotifiesPayerOnly(t *testing.T) {
	h := newConsumerHarness(t)
	payload := payloads.BankTransferApprovedEvent{
		PaymentEvent: gatewayPayload(h.fixture).PaymentEvent,
		ApprovedBy:   h.fixture.Admin.ID,
	}
	payload.Medium = enums.PaymentMediumBankTransfer
	payload.NotifyAdmins = false

	result := h.consumer.process(context.Background(), paymentMessage(t, enums.EventBankTransferApproved, uuid.New(), payload))
	assert.True(t, result.ack)
	assert.EqualValues(t, 1, h.count(t, h.fixture.User.ID))
	assert.Zero(t, h.count(t, h.fixture.Admin.ID))
}

func TestConsumerAcksUnusableMessages(t *testing.T) {
	h := newConsumerHarness(t)
	ctx := context.Background()

	other := paymentMessage(t, enums.OutboxEventType("store_created"), uuid.New(), map[string]string{})
	assert.True(t, h.consumer.process(ctx, other).ack)

	garbled := paymentMessage(t, enums.EventGatewayPaymentReceived, uuid.New(), nil)
	garbled.Data = []byte("{")
	assert.True(t, h.consumer.process(ctx, garbled).ack)

	badPayload := paymentMessage(t, enums.EventGatewayPaymentReceived, uuid.New(), "not-an-object")
	assert.True(t, h.consumer.process(ctx, badPayload).ack)

	assert.Empty(t, h.store.keys)
	assert.Zero(t, h.count(t, h.fixture.User.ID))
}

func TestConsumerNacksAndReleasesKeyOnWriteFailure(t *testing.T) {
	store := newMemoryStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	writer := &failingWriter{}
	payer, admin := uuid.New(), uuid.New()

	consumer, err := NewConsumer(ConsumerParams{
		Repo:         writer,
		Admins:       staticAdmins{admin, payer},
		Subscription: idleSource{},
		Idempotency:  manager,
		Logger:       logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	payload := payloads.GatewayPaymentReceivedEvent{PaymentEvent: payloads.PaymentEvent{
		PaymentID:    uuid.New(),
		PayerID:      payer,
		PricePoint:   decimal.NewFromInt(100),
		NotifyAdmins: true,
	}}
	result := consumer.process(context.Background(), paymentMessage(t, enums.EventGatewayPaymentReceived, uuid.New(), payload))

	assert.True(t, result.nack)
	assert.Equal(t, 2, writer.calls, "payer once, admin once, payer not duplicated as admin")
	assert.Empty(t, store.keys)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(ConsumerParams{})
	assert.Error(t, err)
}
