package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// Payment is immutable once written.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Kind             enums.PaymentKind   `gorm:"column:kind;type:payment_kind;not null"`
	Reference        *string             `gorm:"column:reference"`
	Note             *string             `gorm:"column:note"`
	RecordedByUserID uuid.UUID           `gorm:"column:recorded_by_user_id;type:uuid;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}
