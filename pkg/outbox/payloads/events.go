package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storepay-backend/pkg/enums"
)

// PaymentEvent is the payload of every payment lifecycle event.
type PaymentEvent struct {
	PaymentID      uuid.UUID           `json:"paymentId"`
	SubscriptionID uuid.UUID           `json:"subscriptionId"`
	StoreID        uuid.UUID           `json:"storeId"`
	PayerID        uuid.UUID           `json:"payerId"`
	Medium         enums.PaymentMedium `json:"medium"`
	Status         enums.PaymentStatus `json:"status"`
	PricePoint     decimal.Decimal     `json:"pricePoint"`
	Reference      string              `json:"reference,omitempty"`
	Depositor      string              `json:"depositor,omitempty"`
	// NotifyAdmins asks the consumer to fan out to every platform admin too.
	NotifyAdmins bool `json:"notifyAdmins"`
}

// GatewayPaymentReceivedEvent fires when a gateway payment settles a subscription.
type GatewayPaymentReceivedEvent struct {
	PaymentEvent
}

// BankTransferApprovedEvent fires when an admin approves a pending transfer.
type BankTransferApprovedEvent struct {
	PaymentEvent
	ApprovedBy uuid.UUID `json:"approvedBy"`
}
