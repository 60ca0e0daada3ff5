package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// ServiceOrder is one device intake tracked from reception to delivery.
type ServiceOrder struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID           uuid.UUID         `gorm:"column:branch_id;type:uuid;not null"`
	CustomerID         uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	EquipmentTypeID    uuid.UUID         `gorm:"column:equipment_type_id;type:uuid;not null"`
	BrandModelID       *uuid.UUID        `gorm:"column:brand_model_id;type:uuid"`
	OrderNumber        string            `gorm:"column:order_number;not null"`
	Status             enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	SerialNumber       *string           `gorm:"column:serial_number"`
	Accessories        *string           `gorm:"column:accessories"`
	ReportedProblem    string            `gorm:"column:reported_problem;not null"`
	Diagnosis          *string           `gorm:"column:diagnosis"`
	RepairPerformed    *string           `gorm:"column:repair_performed"`
	Notes              *string           `gorm:"column:notes"`
	EstimatedCost      *decimal.Decimal  `gorm:"column:estimated_cost;type:numeric(12,2)"`
	FinalCost          *decimal.Decimal  `gorm:"column:final_cost;type:numeric(12,2)"`
	OutstandingBalance decimal.Decimal   `gorm:"column:outstanding_balance;type:numeric(12,2);not null"`
	SignatureURL       *string           `gorm:"column:signature_url"`
	SignatureKey       *string           `gorm:"column:signature_object_key"`
	CreatedByUserID    uuid.UUID         `gorm:"column:created_by_user_id;type:uuid;not null"`
	IntakeAt           time.Time         `gorm:"column:intake_at;not null"`
	CompletedAt        *time.Time        `gorm:"column:completed_at"`
	Photos             []OrderPhoto      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BillableCost is the final cost when set, else the estimate, else zero.
func (o ServiceOrder) BillableCost() decimal.Decimal {
	switch {
	case o.FinalCost != nil:
		return *o.FinalCost
	case o.EstimatedCost != nil:
		return *o.EstimatedCost
	default:
		return decimal.Zero
	}
}

// OrderPhoto references a device photo held in the blob store.
type OrderPhoto struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	URL         string    `gorm:"column:url;not null"`
	ObjectKey   string    `gorm:"column:object_key;not null"`
	ContentType string    `gorm:"column:content_type;not null"`
	Caption     *string   `gorm:"column:caption"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderSequence holds the per-branch counter behind order numbers.
type OrderSequence struct {
	BranchID  uuid.UUID `gorm:"column:branch_id;type:uuid;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
