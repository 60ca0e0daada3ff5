package enums

import "fmt"

// HistoryAction classifies an order history entry.
type HistoryAction string

const (
	HistoryActionCreation        HistoryAction = "creation"
	HistoryActionStatusChange    HistoryAction = "status_change"
	HistoryActionPaymentRecorded HistoryAction = "payment_recorded"
	HistoryActionOther           HistoryAction = "other"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreation,
	HistoryActionStatusChange,
	HistoryActionPaymentRecorded,
	HistoryActionOther,
}

// String implements fmt.Stringer.
func (a HistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known HistoryAction.
func (a HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
