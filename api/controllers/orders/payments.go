package orders

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/api/validators"
	"github.com/angelmondragon/repairdesk-backend/internal/payments"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

type recordPaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount" validate:"required"`
	Method    string           `json:"method" validate:"required,payment_method"`
	Kind      string           `json:"kind" validate:"required,payment_kind"`
	Reference *string          `json:"reference" validate:"omitempty,max=120"`
	Note      *string          `json:"note" validate:"omitempty,max=2000"`
}

// RecordPayment writes a payment against the order and returns the receipt.
func RecordPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.RecordPayment(r.Context(), scope, orderID, payments.RecordPaymentInput{
			Amount:    *req.Amount,
			Method:    enums.PaymentMethod(req.Method),
			Kind:      enums.PaymentKind(req.Kind),
			Reference: req.Reference,
			Note:      req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payments.ToReceiptDTO(*receipt))
	}
}

func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPayments(r.Context(), scope, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]payments.PaymentDTO, 0, len(rows))
		for _, p := range rows {
			out = append(out, payments.ToDTO(p))
		}
		responses.WriteSuccess(w, out)
	}
}

// Balance reports the stored balance next to the one implied by the payments.
func Balance(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Reconcile(r.Context(), scope, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
