package enums

import "fmt"

// SubscriptionStatus tracks whether a store subscription has been paid for.
type SubscriptionStatus string

const (
	SubscriptionStatusUnpaid    SubscriptionStatus = "unpaid"
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusPaid      SubscriptionStatus = "paid"
	SubscriptionStatusDisproved SubscriptionStatus = "disproved"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusUnpaid,
	SubscriptionStatusPending,
	SubscriptionStatusPaid,
	SubscriptionStatusDisproved,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// BlocksPayment reports whether a new payment may not be recorded against a
// subscription in this status.
func (s SubscriptionStatus) BlocksPayment() bool {
	return s == SubscriptionStatusPaid || s == SubscriptionStatusPending
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
