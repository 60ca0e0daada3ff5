package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// OrderHistoryEntry is an immutable audit record for a service order.
type OrderHistoryEntry struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	ActorUserID    *uuid.UUID          `gorm:"column:actor_user_id;type:uuid"`
	PreviousStatus *enums.OrderStatus  `gorm:"column:previous_status;type:order_status"`
	NewStatus      enums.OrderStatus   `gorm:"column:new_status;type:order_status;not null"`
	Action         enums.HistoryAction `gorm:"column:action;type:history_action;not null"`
	Note           *string             `gorm:"column:note"`
	Payload        HistoryPayload      `gorm:"column:payload;type:jsonb;serializer:json"`
	CreatedAt      time.Time           `gorm:"column:created_at;not null"`
}

// HistoryPayload is the structured part of a history entry.
type HistoryPayload struct {
	Changes []FieldChange   `json:"changes,omitempty"`
	Payment *PaymentPayload `json:"payment,omitempty"`
	Photo   *PhotoPayload   `json:"photo,omitempty"`
}

// FieldChange captures one edited order field. Nil means the field was unset.
type FieldChange struct {
	Field string  `json:"field"`
	From  *string `json:"from,omitempty"`
	To    *string `json:"to,omitempty"`
}

// PaymentPayload is attached to payment_recorded entries.
type PaymentPayload struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Kind          enums.PaymentKind   `json:"kind"`
	BalanceBefore decimal.Decimal     `json:"balance_before"`
	BalanceAfter  decimal.Decimal     `json:"balance_after"`
}

type PhotoPayload struct {
	PhotoID uuid.UUID `json:"photo_id"`
	URL     string    `json:"url"`
}
