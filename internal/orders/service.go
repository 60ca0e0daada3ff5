package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/internal/catalog"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/numbering"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
)

const orderInsertSavepoint = "order_insert"

// Service is the order lifecycle entry point. Every call is scoped to the
// caller's branch.
type Service interface {
	CreateOrder(ctx context.Context, scope tenancy.Scope, input CreateOrderInput) (*models.ServiceOrder, error)
	GetOrder(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*models.ServiceOrder, error)
	GetOrderByNumber(ctx context.Context, scope tenancy.Scope, orderNumber string) (*models.ServiceOrder, error)
	GetDetail(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*OrderDetail, error)
	ListOrders(ctx context.Context, scope tenancy.Scope, params pagination.Params, filters ListFilters) (*pagination.Page[models.ServiceOrder], error)
	UpdateStatus(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input UpdateStatusInput) (*models.ServiceOrder, error)
	AddPhoto(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input AddPhotoInput) (*models.OrderPhoto, error)
	History(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, ascending bool) ([]models.OrderHistoryEntry, error)
	DeleteOrder(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) error
}

// Params wires the order service. Blobs and Metrics may be nil.
type Params struct {
	Repo      Repository
	Tx        txRunner
	Customers customers.Service
	Catalog   catalog.Service
	Numbers   *numbering.Generator
	History   history.Service
	Outbox    outboxPublisher
	Blobs     BlobStore
	Metrics   *metrics.EngineMetrics
	Logger    *logger.Logger
	Config    config.OrdersConfig
	Strict    bool
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	customers customers.Service
	catalog   catalog.Service
	numbers   *numbering.Generator
	history   history.Service
	outbox    outboxPublisher
	blobs     BlobStore
	metrics   *metrics.EngineMetrics
	logg      *logger.Logger
	cfg       config.OrdersConfig
	machine   StateMachine
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Customers == nil {
		return nil, fmt.Errorf("customers service required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if p.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if p.History == nil {
		return nil, fmt.Errorf("history service required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      p.Repo,
		tx:        p.Tx,
		customers: p.Customers,
		catalog:   p.Catalog,
		numbers:   p.Numbers,
		history:   p.History,
		outbox:    p.Outbox,
		blobs:     p.Blobs,
		metrics:   p.Metrics,
		logg:      logg,
		cfg:       p.Config,
		machine:   NewStateMachine(p.Strict),
		now:       func() time.Time { return now().UTC() },
	}, nil
}

func requireScope(scope tenancy.Scope) error {
	if scope.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if scope.BranchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing")
	}
	return nil
}

func actorRef(scope tenancy.Scope) *outbox.ActorRef {
	branchID := scope.BranchID
	return &outbox.ActorRef{UserID: scope.UserID, BranchID: &branchID, Role: string(scope.Role)}
}

func (s *service) CreateOrder(ctx context.Context, scope tenancy.Scope, input CreateOrderInput) (*models.ServiceOrder, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	intakeAt := s.now()
	orderID := uuid.New()

	signature, err := s.uploadImage(ctx, scope.BranchID, orderID, signatureKind, input.Signature, s.cfg.MaxSignatureBytes)
	if err != nil {
		return nil, err
	}

	var order *models.ServiceOrder
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.customers.ResolveOrCreate(ctx, tx, scope.BranchID, input.Customer)
		if err != nil {
			return err
		}
		equipment, err := s.catalog.ResolveEquipmentType(ctx, tx, scope.BranchID, input.EquipmentType)
		if err != nil {
			return err
		}
		var brandModelID *uuid.UUID
		if input.hasBrandModel() {
			bm, err := s.catalog.ResolveBrandModel(ctx, tx, scope.BranchID, input.Brand, input.Model)
			if err != nil {
				return err
			}
			brandModelID = &bm.ID
		}
		if err := s.catalog.IncrementUsage(ctx, tx, equipment.ID, brandModelID); err != nil {
			return err
		}

		order = &models.ServiceOrder{
			ID:              orderID,
			BranchID:        scope.BranchID,
			CustomerID:      customer.ID,
			EquipmentTypeID: equipment.ID,
			BrandModelID:    brandModelID,
			Status:          enums.OrderStatusPending,
			SerialNumber:    trimmedOrNil(input.SerialNumber),
			Accessories:     trimmedOrNil(input.Accessories),
			ReportedProblem: trimmed(input.ReportedProblem),
			Notes:           trimmedOrNil(input.Notes),
			EstimatedCost:   input.EstimatedCost,
			CreatedByUserID: scope.UserID,
			IntakeAt:        intakeAt,
		}
		order.OutstandingBalance = order.BillableCost()
		if signature != nil {
			order.SignatureURL = &signature.URL
			order.SignatureKey = &signature.Key
		}
		if err := s.insertNumbered(ctx, tx, order); err != nil {
			return err
		}

		actor := scope.UserID
		if _, err := s.history.Append(ctx, tx, history.AppendInput{
			OrderID:     order.ID,
			ActorUserID: &actor,
			NewStatus:   order.Status,
			Action:      enums.HistoryActionCreation,
			Note:        order.Notes,
			At:          intakeAt,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   order.ID,
			BranchID:      order.BranchID,
			Actor:         actorRef(scope),
			OccurredAt:    intakeAt,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BranchID:    order.BranchID,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				IntakeAt:    order.IntakeAt,
			},
		})
	})
	if txErr != nil {
		txErr = db.Classify(txErr, "create order")
		s.logg.Error(s.logg.WithField(ctx, "branch_id", scope.BranchID.String()), "order.create_failed", txErr)
		return nil, s.discardUpload(ctx, "create_order", signature, txErr)
	}

	s.metrics.OrderCreated()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"branch_id":    order.BranchID.String(),
	}), "order.created")
	return order, nil
}

// insertNumbered allocates a number and inserts the order. The insert runs
// behind a savepoint so an order_number collision can be retried with the
// next counter value without aborting the surrounding tx.
func (s *service) insertNumbered(ctx context.Context, tx *gorm.DB, order *models.ServiceOrder) error {
	repo := s.repo.WithTx(tx)
	tried := make([]string, 0, numbering.MaxAttempts)
	for attempt := 0; attempt < numbering.MaxAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, tx, order.BranchID, order.IntakeAt)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		tried = append(tried, number)

		if err := tx.SavePoint(orderInsertSavepoint).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order savepoint")
		}
		err = repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return db.Classify(err, "insert service order")
		}
		if rbErr := tx.RollbackTo(orderInsertSavepoint).Error; rbErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "rollback order savepoint")
		}
		s.logg.Warn(s.logg.WithField(ctx, "order_number", number), "order number collision, retrying")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number").
		WithDetails(map[string]any{"attempted": tried})
}

func (s *service) GetOrder(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*models.ServiceOrder, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, scope.BranchID, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return order, nil
}

func (s *service) GetOrderByNumber(ctx context.Context, scope tenancy.Scope, orderNumber string) (*models.ServiceOrder, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	number := trimmed(orderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, scope.BranchID, number)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return order, nil
}

func (s *service) GetDetail(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*OrderDetail, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetail(ctx, scope.BranchID, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return detail, nil
}

func (s *service) ListOrders(ctx context.Context, scope tenancy.Scope, params pagination.Params, filters ListFilters) (*pagination.Page[models.ServiceOrder], error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	page, err := s.repo.List(ctx, scope.BranchID, params, filters)
	if err != nil {
		return nil, db.Classify(err, "list orders")
	}
	return page, nil
}

func (s *service) History(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, ascending bool) ([]models.OrderHistoryEntry, error) {
	if _, err := s.GetOrder(ctx, scope, orderID); err != nil {
		return nil, err
	}
	return s.history.List(ctx, orderID, ascending)
}

// notFound maps a missing row onto NOT_FOUND with a caller-facing message.
func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return db.Classify(err, message)
}
