package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// OrderCreatedEvent announces a new intake.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	BranchID    uuid.UUID         `json:"branch_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	IntakeAt    time.Time         `json:"intake_at"`
}

// OrderStatusChangedEvent is emitted for every status update, including field-only edits.
type OrderStatusChangedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	OrderNumber        string            `json:"order_number"`
	BranchID           uuid.UUID         `json:"branch_id"`
	PreviousStatus     enums.OrderStatus `json:"previous_status"`
	Status             enums.OrderStatus `json:"status"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

// OrderPhotoAddedEvent surfaces a new device photo.
type OrderPhotoAddedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	BranchID uuid.UUID `json:"branch_id"`
	PhotoID  uuid.UUID `json:"photo_id"`
	URL      string    `json:"url"`
}

// OrderDeletedEvent records an admin cascade delete.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BranchID    uuid.UUID `json:"branch_id"`
}

// PaymentRecordedEvent carries the ledger movement of one payment.
type PaymentRecordedEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Kind          enums.PaymentKind   `json:"kind"`
	BalanceBefore decimal.Decimal     `json:"balance_before"`
	BalanceAfter  decimal.Decimal     `json:"balance_after"`
}
