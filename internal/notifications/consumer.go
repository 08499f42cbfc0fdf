package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storepay-backend/pkg/outbox/registry"
)

const paymentNotificationConsumer = "payment-notifications"

type notificationWriter interface {
	CreateOnce(ctx context.Context, notification *models.Notification) (bool, error)
}

type adminDirectory interface {
	PlatformAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

// ConsumerParams wires the payment notification consumer.
type ConsumerParams struct {
	Repo         notificationWriter
	Admins       adminDirectory
	Subscription messageSource
	Idempotency  processedTracker
	Decoders     payloadDecoder
	Logger       *logger.Logger
}

// Consumer turns payment events into in-app notifications for the payer and,
// when asked, every platform admin.
type Consumer struct {
	repo         notificationWriter
	admins       adminDirectory
	subscription messageSource
	idempotency  processedTracker
	decoders     payloadDecoder
	logg         *logger.Logger
}

// NewConsumer builds a payment notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("payments subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = registry.NewPaymentDecoderRegistry()
	}
	return &Consumer{
		repo:         params.Repo,
		admins:       params.Admins,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     decoders,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventGatewayPaymentReceived && eventType != enums.EventBankTransferApproved {
		c.logg.Debug(logCtx, "skipping non-payment event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	// A payload that does not decode never will, so it is acked before the
	// idempotency key is taken.
	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, paymentNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.deliver(ctx, eventID, decoded, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if delErr := c.idempotency.Delete(ctx, paymentNotificationConsumer, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) deliver(ctx context.Context, eventID uuid.UUID, decoded any, logCtx context.Context) error {
	drafts, err := c.draftsFor(ctx, decoded)
	if err != nil {
		return err
	}

	var errs error
	created := 0
	for i := range drafts {
		drafts[i].EventID = eventID
		ok, err := c.repo.CreateOnce(ctx, &drafts[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("notify user %s: %w", drafts[i].UserID, err))
			continue
		}
		if ok {
			created++
		}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"recipients": len(drafts),
		"created":    created,
	}), "payment notifications delivered")
	return errs
}

func (c *Consumer) draftsFor(ctx context.Context, decoded any) ([]models.Notification, error) {
	switch event := decoded.(type) {
	case *payloads.GatewayPaymentReceivedEvent:
		drafts := []models.Notification{payerReceipt(event.PaymentEvent)}
		if !event.NotifyAdmins {
			return drafts, nil
		}
		adminIDs, err := c.admins.PlatformAdminIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("load platform admins: %w", err)
		}
		for _, adminID := range adminIDs {
			if adminID == event.PayerID {
				continue
			}
			drafts = append(drafts, adminAlert(adminID, event.PaymentEvent))
		}
		return drafts, nil
	case *payloads.BankTransferApprovedEvent:
		return []models.Notification{payerApproval(event.PaymentEvent)}, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", decoded)
	}
}

func payerReceipt(event payloads.PaymentEvent) models.Notification {
	return models.Notification{
		UserID:  event.PayerID,
		Type:    enums.NotificationTypePaymentReceived,
		Title:   "Payment received",
		Message: fmt.Sprintf("We received your payment of %s. Your app will be ready in minutes.", event.PricePoint.StringFixed(2)),
		Link:    stringPtr(paymentLink(event.PaymentID)),
	}
}

func adminAlert(adminID uuid.UUID, event payloads.PaymentEvent) models.Notification {
	return models.Notification{
		UserID:  adminID,
		Type:    enums.NotificationTypePaymentReceived,
		Title:   "New payment received",
		Message: fmt.Sprintf("%s paid %s via %s for store %s.", event.Depositor, event.PricePoint.StringFixed(2), event.Medium, event.StoreID),
		Link:    stringPtr(fmt.Sprintf("/admin/payments/%s", event.PaymentID)),
	}
}

func payerApproval(event payloads.PaymentEvent) models.Notification {
	return models.Notification{
		UserID:  event.PayerID,
		Type:    enums.NotificationTypePaymentApproved,
		Title:   "Payment approved",
		Message: fmt.Sprintf("Your bank transfer of %s has been approved and your subscription is active.", event.PricePoint.StringFixed(2)),
		Link:    stringPtr(paymentLink(event.PaymentID)),
	}
}

func paymentLink(paymentID uuid.UUID) string {
	return fmt.Sprintf("/payments/%s", paymentID)
}

func stringPtr(value string) *string {
	return &value
}
