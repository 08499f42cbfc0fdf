package enums

// StoreStatus gates whether a store is usable.
type StoreStatus string

const (
	StoreStatusUnpaid StoreStatus = "unpaid"
	StoreStatusPaid   StoreStatus = "paid"
)

func (s StoreStatus) IsValid() bool {
	return s == StoreStatusUnpaid || s == StoreStatusPaid
}
