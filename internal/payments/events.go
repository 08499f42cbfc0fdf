package payments

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/outbox/payloads"
)

func paymentEvent(payment *models.Payment, notifyAdmins bool) payloads.PaymentEvent {
	event := payloads.PaymentEvent{
		PaymentID:      payment.ID,
		SubscriptionID: payment.SubscriptionID,
		StoreID:        payment.StoreID,
		PayerID:        payment.UserID,
		Medium:         payment.Medium,
		Status:         payment.Status,
		PricePoint:     payment.PricePoint,
		Depositor:      payment.Depositor,
		NotifyAdmins:   notifyAdmins,
	}
	if payment.Reference != nil {
		event.Reference = *payment.Reference
	}
	return event
}

// gatewayReceivedEvent notifies the payer and every platform admin.
func gatewayReceivedEvent(actor Actor, payment *models.Payment) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventGatewayPaymentReceived,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actorRef(actor),
		Version:       1,
		Data:          payloads.GatewayPaymentReceivedEvent{PaymentEvent: paymentEvent(payment, true)},
	}
}

func bankTransferApprovedEvent(actor Actor, payment *models.Payment) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventBankTransferApproved,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actorRef(actor),
		Version:       1,
		Data: payloads.BankTransferApprovedEvent{
			PaymentEvent: paymentEvent(payment, false),
			ApprovedBy:   actor.UserID,
		},
	}
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
}
