package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// CreateOrderInput is one device intake. Brand and Model are optional; when
// either is present a brand/model catalog entry is resolved.
type CreateOrderInput struct {
	Customer        customers.CustomerInput
	EquipmentType   string
	Brand           string
	Model           string
	SerialNumber    *string
	Accessories     *string
	ReportedProblem string
	Notes           *string
	EstimatedCost   *decimal.Decimal
	Signature       []byte
}

func (in CreateOrderInput) Validate() error {
	if err := in.Customer.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.EquipmentType) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "equipment type is required")
	}
	if strings.TrimSpace(in.ReportedProblem) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reported problem is required")
	}
	return validateCost("estimated_cost", in.EstimatedCost)
}

func (in CreateOrderInput) hasBrandModel() bool {
	return strings.TrimSpace(in.Brand) != "" || strings.TrimSpace(in.Model) != ""
}

// UpdateStatusInput carries a status write plus optional field edits. Nil
// fields are left untouched; Notes also becomes the history note.
type UpdateStatusInput struct {
	Status          enums.OrderStatus
	Notes           *string
	Diagnosis       *string
	RepairPerformed *string
	EstimatedCost   *decimal.Decimal
	FinalCost       *decimal.Decimal
}

func (in UpdateStatusInput) Validate() error {
	if !in.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": string(in.Status)})
	}
	if err := validateCost("estimated_cost", in.EstimatedCost); err != nil {
		return err
	}
	return validateCost("final_cost", in.FinalCost)
}

// AddPhotoInput is one device photo upload.
type AddPhotoInput struct {
	Data    []byte
	Caption *string
}

// ListFilters narrows ListOrders.
type ListFilters struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
}

func validateCost(field string, cost *decimal.Decimal) error {
	if cost == nil {
		return nil
	}
	if cost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must not be negative").
			WithDetails(map[string]any{"field": field})
	}
	if !cost.Equal(cost.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must have at most two decimal places").
			WithDetails(map[string]any{"field": field})
	}
	return nil
}

// OrderDTO is the API view of a service order.
type OrderDTO struct {
	ID                 uuid.UUID         `json:"id"`
	BranchID           uuid.UUID         `json:"branch_id"`
	CustomerID         uuid.UUID         `json:"customer_id"`
	EquipmentTypeID    uuid.UUID         `json:"equipment_type_id"`
	BrandModelID       *uuid.UUID        `json:"brand_model_id,omitempty"`
	OrderNumber        string            `json:"order_number"`
	Status             enums.OrderStatus `json:"status"`
	SerialNumber       *string           `json:"serial_number,omitempty"`
	Accessories        *string           `json:"accessories,omitempty"`
	ReportedProblem    string            `json:"reported_problem"`
	Diagnosis          *string           `json:"diagnosis,omitempty"`
	RepairPerformed    *string           `json:"repair_performed,omitempty"`
	Notes              *string           `json:"notes,omitempty"`
	EstimatedCost      *decimal.Decimal  `json:"estimated_cost,omitempty"`
	FinalCost          *decimal.Decimal  `json:"final_cost,omitempty"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance"`
	SignatureURL       *string           `json:"signature_url,omitempty"`
	IntakeAt           time.Time         `json:"intake_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

func ToDTO(o models.ServiceOrder) OrderDTO {
	return OrderDTO{
		ID:                 o.ID,
		BranchID:           o.BranchID,
		CustomerID:         o.CustomerID,
		EquipmentTypeID:    o.EquipmentTypeID,
		BrandModelID:       o.BrandModelID,
		OrderNumber:        o.OrderNumber,
		Status:             o.Status,
		SerialNumber:       o.SerialNumber,
		Accessories:        o.Accessories,
		ReportedProblem:    o.ReportedProblem,
		Diagnosis:          o.Diagnosis,
		RepairPerformed:    o.RepairPerformed,
		Notes:              o.Notes,
		EstimatedCost:      o.EstimatedCost,
		FinalCost:          o.FinalCost,
		OutstandingBalance: o.OutstandingBalance,
		SignatureURL:       o.SignatureURL,
		IntakeAt:           o.IntakeAt,
		CompletedAt:        o.CompletedAt,
	}
}

// HistoryEntryDTO is the API view of one history entry.
type HistoryEntryDTO struct {
	ID             uuid.UUID             `json:"id"`
	ActorUserID    *uuid.UUID            `json:"actor_user_id,omitempty"`
	PreviousStatus *enums.OrderStatus    `json:"previous_status,omitempty"`
	NewStatus      enums.OrderStatus     `json:"new_status"`
	Action         enums.HistoryAction   `json:"action"`
	Note           *string               `json:"note,omitempty"`
	Payload        models.HistoryPayload `json:"payload"`
	CreatedAt      time.Time             `json:"created_at"`
}

func ToHistoryDTOs(entries []models.OrderHistoryEntry) []HistoryEntryDTO {
	out := make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryDTO{
			ID:             e.ID,
			ActorUserID:    e.ActorUserID,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Action:         e.Action,
			Note:           e.Note,
			Payload:        e.Payload,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}

// PhotoDTO is the API view of a device photo.
type PhotoDTO struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Caption   *string   `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToPhotoDTO(p models.OrderPhoto) PhotoDTO {
	return PhotoDTO{ID: p.ID, URL: p.URL, Caption: p.Caption, CreatedAt: p.CreatedAt}
}
