package enums

import "fmt"

// PaymentKind separates balance-bounded payments from the final settlement.
type PaymentKind string

const (
	PaymentKindDeposit         PaymentKind = "deposit"
	PaymentKindPartial         PaymentKind = "partial"
	PaymentKindFinalSettlement PaymentKind = "final_settlement"
)

var validPaymentKinds = []PaymentKind{
	PaymentKindDeposit,
	PaymentKindPartial,
	PaymentKindFinalSettlement,
}

// String implements fmt.Stringer.
func (p PaymentKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentKind.
func (p PaymentKind) IsValid() bool {
	for _, candidate := range validPaymentKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// SettlesBalance reports whether the kind may meet or exceed the outstanding balance.
func (p PaymentKind) SettlesBalance() bool {
	return p == PaymentKindFinalSettlement
}

// ParsePaymentKind converts raw input into a PaymentKind.
func ParsePaymentKind(value string) (PaymentKind, error) {
	for _, candidate := range validPaymentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment kind %q", value)
}
