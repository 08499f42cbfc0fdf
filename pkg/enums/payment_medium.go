package enums

import (
	"fmt"
	"strings"
)

// PaymentMedium identifies how a tenant paid for a subscription.
type PaymentMedium string

const (
	PaymentMediumPaystack     PaymentMedium = "paystack"
	PaymentMediumBankTransfer PaymentMedium = "bank-transfer"
)

var validPaymentMediums = []PaymentMedium{
	PaymentMediumPaystack,
	PaymentMediumBankTransfer,
}

// String implements fmt.Stringer.
func (m PaymentMedium) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m PaymentMedium) IsValid() bool {
	for _, candidate := range validPaymentMediums {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMedium converts raw input into a PaymentMedium. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParsePaymentMedium(value string) (PaymentMedium, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMediums {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment medium %q", value)
}
