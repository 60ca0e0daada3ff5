package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// OrderDetail is a fully populated order for ticket, QR and export renderers.
type OrderDetail struct {
	Order         models.ServiceOrder
	Customer      models.Customer
	EquipmentType models.EquipmentType
	BrandModel    *models.BrandModel
	Branch        models.Branch
	Tenant        models.Tenant
	Photos        []models.OrderPhoto
	Payments      []models.Payment
}

// FindDetail loads the order then each referenced row. A missing reference is
// reported as not found like the order itself.
func (r *repository) FindDetail(ctx context.Context, branchID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := r.FindByID(ctx, branchID, orderID)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	detail := &OrderDetail{Order: *order}

	if err := db.Where("id = ?", order.CustomerID).First(&detail.Customer).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", order.EquipmentTypeID).First(&detail.EquipmentType).Error; err != nil {
		return nil, err
	}
	if order.BrandModelID != nil {
		var bm models.BrandModel
		err := db.Where("id = ?", *order.BrandModelID).First(&bm).Error
		switch {
		case err == nil:
			detail.BrandModel = &bm
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	if err := db.Where("id = ?", order.BranchID).First(&detail.Branch).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", detail.Branch.TenantID).First(&detail.Tenant).Error; err != nil {
		return nil, err
	}
	if detail.Photos, err = r.ListPhotos(ctx, order.ID); err != nil {
		return nil, err
	}
	if err := db.Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&detail.Payments).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

// OrderDetailDTO flattens an OrderDetail for renderers.
type OrderDetailDTO struct {
	Order         OrderDTO        `json:"order"`
	Customer      DetailCustomer  `json:"customer"`
	EquipmentType string          `json:"equipment_type"`
	Brand         *string         `json:"brand,omitempty"`
	Model         *string         `json:"model,omitempty"`
	Branch        DetailBranch    `json:"branch"`
	Tenant        DetailTenant    `json:"tenant"`
	Photos        []PhotoDTO      `json:"photos"`
	Payments      []DetailPayment `json:"payments"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

type DetailCustomer struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Email    *string   `json:"email,omitempty"`
}

type DetailBranch struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Code    string    `json:"code"`
	Phone   *string   `json:"phone,omitempty"`
	Address *string   `json:"address,omitempty"`
}

type DetailTenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	LegalName *string   `json:"legal_name,omitempty"`
	TaxID     *string   `json:"tax_id,omitempty"`
}

type DetailPayment struct {
	ID        uuid.UUID           `json:"id"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    enums.PaymentMethod `json:"method"`
	Kind      enums.PaymentKind   `json:"kind"`
	Reference *string             `json:"reference,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func ToDetailDTO(d OrderDetail) OrderDetailDTO {
	out := OrderDetailDTO{
		Order:         ToDTO(d.Order),
		EquipmentType: d.EquipmentType.Name,
		Photos:        make([]PhotoDTO, 0, len(d.Photos)),
		Payments:      make([]DetailPayment, 0, len(d.Payments)),
		TotalPaid:     decimal.Zero,
	}
	out.Customer = DetailCustomer{
		ID:       d.Customer.ID,
		FullName: d.Customer.FullName,
		Phone:    d.Customer.Phone,
		Email:    d.Customer.Email,
	}
	out.Branch = DetailBranch{
		ID:      d.Branch.ID,
		Name:    d.Branch.Name,
		Code:    d.Branch.Code,
		Phone:   d.Branch.Phone,
		Address: d.Branch.Address,
	}
	out.Tenant = DetailTenant{
		ID:        d.Tenant.ID,
		Name:      d.Tenant.Name,
		LegalName: d.Tenant.LegalName,
		TaxID:     d.Tenant.TaxID,
	}
	if d.BrandModel != nil {
		brand, model := d.BrandModel.Brand, d.BrandModel.Model
		out.Brand = &brand
		out.Model = &model
	}
	for _, p := range d.Photos {
		out.Photos = append(out.Photos, ToPhotoDTO(p))
	}
	for _, p := range d.Payments {
		out.Payments = append(out.Payments, DetailPayment{
			ID:        p.ID,
			Amount:    p.Amount,
			Method:    p.Method,
			Kind:      p.Kind,
			Reference: p.Reference,
			CreatedAt: p.CreatedAt,
		})
		out.TotalPaid = out.TotalPaid.Add(p.Amount)
	}
	return out
}
