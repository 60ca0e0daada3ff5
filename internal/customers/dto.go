package customers

import (
	"strings"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/types"
)

// CustomerInput is the raw intake data for a customer.
type CustomerInput struct {
	FullName string
	Phone    string
	Email    *string
}

// normalized returns trimmed input with a canonical phone, or a validation error.
func (in CustomerInput) normalized() (CustomerInput, error) {
	out := CustomerInput{FullName: strings.Join(strings.Fields(in.FullName), " ")}
	if out.FullName == "" {
		return CustomerInput{}, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required").
			WithDetails(map[string]any{"field": "full_name"})
	}
	phone, err := ValidatePhone(in.Phone)
	if err != nil {
		return CustomerInput{}, err
	}
	out.Phone = phone
	out.Email = normalizeEmail(in.Email)
	return out, nil
}

// Validate reports whether the input would be accepted by ResolveOrCreate.
func (in CustomerInput) Validate() error {
	_, err := in.normalized()
	return err
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UpdateInput corrects a customer's name or email. A Set email with nil Value clears it.
type UpdateInput struct {
	FullName *string
	Email    types.Nullable[string]
}

// CustomerDTO is the API view of a customer.
type CustomerDTO struct {
	ID       string  `json:"id"`
	BranchID string  `json:"branch_id"`
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email,omitempty"`
}

func ToDTO(c models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:       c.ID.String(),
		BranchID: c.BranchID.String(),
		FullName: c.FullName,
		Phone:    c.Phone,
		Email:    c.Email,
	}
}
