package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves and maintains branch customers.
type Service interface {
	// ResolveOrCreate runs on tx when given, so order intake can include it in its transaction.
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, input CustomerInput) (*models.Customer, error)
	Get(ctx context.Context, branchID, id uuid.UUID) (*models.Customer, error)
	FindByPhone(ctx context.Context, branchID uuid.UUID, phone string) (*models.Customer, error)
	Update(ctx context.Context, branchID, id uuid.UUID, input UpdateInput) (*models.Customer, error)
	Delete(ctx context.Context, branchID, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("customers repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) ResolveOrCreate(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, input CustomerInput) (*models.Customer, error) {
	if branchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	in, err := input.normalized()
	if err != nil {
		return nil, err
	}

	if tx == nil {
		var out *models.Customer
		err := s.tx.WithTx(ctx, func(inner *gorm.DB) error {
			var resolveErr error
			out, resolveErr = s.resolve(ctx, s.repo.WithTx(inner), branchID, in)
			return resolveErr
		})
		return out, err
	}
	return s.resolve(ctx, s.repo.WithTx(tx), branchID, in)
}

// resolve inserts first and reads back; the unique index on (branch_id, phone)
// decides which of two concurrent intakes owns the row.
func (s *service) resolve(ctx context.Context, repo Repository, branchID uuid.UUID, in CustomerInput) (*models.Customer, error) {
	candidate := &models.Customer{
		ID:       uuid.New(),
		BranchID: branchID,
		FullName: in.FullName,
		Phone:    in.Phone,
		Email:    in.Email,
	}
	created, err := repo.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, db.Classify(err, "create customer")
	}
	if created {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"customer_id": candidate.ID.String(),
			"branch_id":   branchID.String(),
		}), "customer.created")
		return candidate, nil
	}

	existing, err := repo.FindByPhone(ctx, branchID, in.Phone)
	if err != nil {
		return nil, db.Classify(err, "load customer by phone")
	}

	updates := map[string]any{}
	if existing.FullName != in.FullName {
		updates["full_name"] = in.FullName
		existing.FullName = in.FullName
	}
	if in.Email != nil && (existing.Email == nil || *existing.Email != *in.Email) {
		updates["email"] = *in.Email
		existing.Email = in.Email
	}
	if len(updates) > 0 {
		if err := repo.Update(ctx, branchID, existing.ID, updates); err != nil {
			return nil, db.Classify(err, "refresh customer contact")
		}
	}
	return existing, nil
}

func (s *service) Get(ctx context.Context, branchID, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindByID(ctx, branchID, id)
	if err != nil {
		return nil, db.Classify(err, "customer not found")
	}
	return customer, nil
}

func (s *service) FindByPhone(ctx context.Context, branchID uuid.UUID, phone string) (*models.Customer, error) {
	canonical, err := ValidatePhone(phone)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByPhone(ctx, branchID, canonical)
	if err != nil {
		return nil, db.Classify(err, "customer not found")
	}
	return customer, nil
}

func (s *service) Update(ctx context.Context, branchID, id uuid.UUID, input UpdateInput) (*models.Customer, error) {
	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.Join(strings.Fields(*input.FullName), " ")
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		updates["full_name"] = name
	}
	if input.Email.Set {
		if email := normalizeEmail(input.Email.Value); email != nil {
			updates["email"] = *email
		} else {
			updates["email"] = nil
		}
	}

	var out *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, branchID, id); err != nil {
			return db.Classify(err, "customer not found")
		}
		if err := repo.Update(ctx, branchID, id, updates); err != nil {
			return db.Classify(err, "update customer")
		}
		updated, err := repo.FindByID(ctx, branchID, id)
		if err != nil {
			return db.Classify(err, "reload customer")
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, branchID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, branchID, id); err != nil {
			return db.Classify(err, "customer not found")
		}
		orders, err := repo.CountOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer orders")
		}
		if orders > 0 {
			return pkgerrors.New(pkgerrors.CodeBlocked, "customer still has service orders").
				WithDetails(map[string]any{"orders": orders})
		}
		if _, err := repo.Delete(ctx, branchID, id); err != nil {
			return db.Classify(err, "delete customer")
		}
		return nil
	})
}
