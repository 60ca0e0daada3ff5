package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/api/middleware"
	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/api/validators"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	internalorders "github.com/angelmondragon/repairdesk-backend/internal/orders"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
	"github.com/angelmondragon/repairdesk-backend/pkg/types"
)

type customerRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Phone    string  `json:"phone" validate:"required,max=32,phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type createOrderRequest struct {
	Customer        customerRequest  `json:"customer" validate:"required"`
	EquipmentType   string           `json:"equipment_type" validate:"required,max=120"`
	Brand           string           `json:"brand" validate:"max=120"`
	Model           string           `json:"model" validate:"max=120"`
	SerialNumber    *string          `json:"serial_number" validate:"omitempty,max=120"`
	Accessories     *string          `json:"accessories" validate:"omitempty,max=500"`
	ReportedProblem string           `json:"reported_problem" validate:"required,max=2000"`
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
	EstimatedCost   *decimal.Decimal `json:"estimated_cost"`
	// Signature is the base64 encoded image captured at intake.
	Signature []byte `json:"signature"`
}

func (req createOrderRequest) toInput() internalorders.CreateOrderInput {
	return internalorders.CreateOrderInput{
		Customer: customers.CustomerInput{
			FullName: req.Customer.FullName,
			Phone:    req.Customer.Phone,
			Email:    req.Customer.Email,
		},
		EquipmentType:   req.EquipmentType,
		Brand:           req.Brand,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		Accessories:     req.Accessories,
		ReportedProblem: req.ReportedProblem,
		Notes:           req.Notes,
		EstimatedCost:   req.EstimatedCost,
		Signature:       req.Signature,
	}
}

type updateStatusRequest struct {
	Status          string           `json:"status" validate:"required,order_status"`
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
	Diagnosis       *string          `json:"diagnosis" validate:"omitempty,max=2000"`
	RepairPerformed *string          `json:"repair_performed" validate:"omitempty,max=2000"`
	EstimatedCost   *decimal.Decimal `json:"estimated_cost"`
	FinalCost       *decimal.Decimal `json:"final_cost"`
}

func scopeOrError(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (tenancy.Scope, bool) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing"))
		return tenancy.Scope{}, false
	}
	return scope, true
}

// Create registers a device intake and returns the new order with its number.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), scope, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.ToDTO(*order))
	}
}

// List returns a cursor page of the branch's orders, newest intake first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.ListOrders(r.Context(), scope, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := pagination.Page[internalorders.OrderDTO]{
			Items:      make([]internalorders.OrderDTO, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for _, order := range page.Items {
			out.Items = append(out.Items, internalorders.ToDTO(order))
		}
		responses.WriteSuccess(w, out)
	}
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	customerID, err := validators.ParseOptionalUUIDQuery(r, "customer_id")
	if err != nil {
		return filters, err
	}
	filters.CustomerID = customerID
	return filters, nil
}

// Detail returns the order with customer, equipment, branch and tenant data
// denormalised for receipts and labels.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		detail, err := svc.GetDetail(r.Context(), scope, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDetailDTO(*detail))
	}
}

// ByNumber looks an order up by its human-readable number, as printed on the QR label.
func ByNumber(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		order, err := svc.GetOrderByNumber(r.Context(), scope, number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]any{"status": req.Status}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), scope, orderID, internalorders.UpdateStatusInput{
			Status:          status,
			Notes:           req.Notes,
			Diagnosis:       req.Diagnosis,
			RepairPerformed: req.RepairPerformed,
			EstimatedCost:   req.EstimatedCost,
			FinalCost:       req.FinalCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

// History lists the order's history entries, newest first unless ascending=true.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		ascending, err := validators.ParseBoolQuery(r, "ascending", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), scope, orderID, ascending)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToHistoryDTOs(entries))
	}
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.DeleteOrder(r.Context(), scope, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Ack{OK: true})
	}
}
