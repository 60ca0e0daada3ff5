package controllers

import (
	"net/http"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/api/validators"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/types"
)

type resolveCustomerRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Phone    string  `json:"phone" validate:"required,max=32,phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type updateCustomerRequest struct {
	FullName *string                `json:"full_name" validate:"omitempty,max=200"`
	Email    types.Nullable[string] `json:"email"`
}

// CustomerResolve finds the branch customer by phone, creating it when absent.
func CustomerResolve(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		var req resolveCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.ResolveOrCreate(r.Context(), nil, scope.BranchID, customers.CustomerInput{
			FullName: req.FullName,
			Phone:    req.Phone,
			Email:    req.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.ToDTO(*customer))
	}
}

func CustomerGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Get(r.Context(), scope.BranchID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.ToDTO(*customer))
	}
}

// CustomerUpdate corrects name or email. Sending "email": null clears it.
func CustomerUpdate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Update(r.Context(), scope.BranchID, customerID, customers.UpdateInput{
			FullName: req.FullName,
			Email:    req.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.ToDTO(*customer))
	}
}

func CustomerDelete(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), scope.BranchID, customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Ack{OK: true})
	}
}
