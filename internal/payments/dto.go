package payments

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// Rejection reasons reported to metrics.
const (
	ReasonNonPositive    = "non_positive_amount"
	ReasonPrecision      = "invalid_precision"
	ReasonInvalidMethod  = "invalid_method"
	ReasonInvalidKind    = "invalid_kind"
	ReasonExceedsBalance = "exceeds_balance"
	ReasonOrderCancelled = "order_cancelled"
)

// RecordPaymentInput is one payment against an order.
type RecordPaymentInput struct {
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Kind      enums.PaymentKind
	Reference *string
	Note      *string
}

// validate returns the metrics reason with the error so rejections can be counted.
func (in RecordPaymentInput) validate() (string, error) {
	if !in.Amount.IsPositive() {
		return ReasonNonPositive, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero").
			WithDetails(map[string]any{"field": "amount"})
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return ReasonPrecision, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places").
			WithDetails(map[string]any{"field": "amount"})
	}
	if !in.Method.IsValid() {
		return ReasonInvalidMethod, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"field": "method"})
	}
	if !in.Kind.IsValid() {
		return ReasonInvalidKind, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment kind").
			WithDetails(map[string]any{"field": "kind"})
	}
	return "", nil
}

// Receipt describes the ledger movement of a recorded payment. Change is the
// part of a final settlement above the outstanding balance.
type Receipt struct {
	Payment       models.Payment
	OrderNumber   string
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Change        decimal.Decimal
}

// ReconcileReport compares the stored balance with the one implied by the payments.
type ReconcileReport struct {
	OrderID         uuid.UUID       `json:"order_id"`
	BillableCost    decimal.Decimal `json:"billable_cost"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	PaymentCount    int             `json:"payment_count"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	Drift           decimal.Decimal `json:"drift"`
	Consistent      bool            `json:"consistent"`
}

// AuditPage is one step of a cross-branch balance audit. LastID is the cursor
// for the next call and is uuid.Nil when no order was checked.
type AuditPage struct {
	Checked int
	Drifted []ReconcileReport
	LastID  uuid.UUID
}

type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderID          uuid.UUID           `json:"order_id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           enums.PaymentMethod `json:"method"`
	Kind             enums.PaymentKind   `json:"kind"`
	Reference        *string             `json:"reference,omitempty"`
	Note             *string             `json:"note,omitempty"`
	RecordedByUserID uuid.UUID           `json:"recorded_by_user_id"`
	CreatedAt        time.Time           `json:"created_at"`
}

func ToDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Method:           p.Method,
		Kind:             p.Kind,
		Reference:        p.Reference,
		Note:             p.Note,
		RecordedByUserID: p.RecordedByUserID,
		CreatedAt:        p.CreatedAt,
	}
}

type ReceiptDTO struct {
	Payment       PaymentDTO      `json:"payment"`
	OrderNumber   string          `json:"order_number"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Change        decimal.Decimal `json:"change"`
}

func ToReceiptDTO(r Receipt) ReceiptDTO {
	return ReceiptDTO{
		Payment:       ToDTO(r.Payment),
		OrderNumber:   r.OrderNumber,
		BalanceBefore: r.BalanceBefore,
		BalanceAfter:  r.BalanceAfter,
		Change:        r.Change,
	}
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
