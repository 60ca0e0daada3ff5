package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/orders"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the payment ledger.
type Service interface {
	// RecordPayment inserts the payment, lowers the order balance and appends
	// history in one transaction holding the order row lock.
	RecordPayment(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input RecordPaymentInput) (*Receipt, error)
	ListPayments(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) ([]models.Payment, error)
	Reconcile(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*ReconcileReport, error)
	// AuditBalances reconciles the next page of orders across every branch.
	AuditBalances(ctx context.Context, afterID uuid.UUID, limit int) (*AuditPage, error)
}

// Params wires the payment ledger. Metrics may be nil.
type Params struct {
	Repo    Repository
	Orders  orders.Repository
	Tx      txRunner
	History history.Service
	Outbox  outboxPublisher
	Metrics *metrics.EngineMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	history history.Service
	outbox  outboxPublisher
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, errors.New("payments repository required")
	}
	if p.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if p.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if p.History == nil {
		return nil, errors.New("history service required")
	}
	if p.Outbox == nil {
		return nil, errors.New("outbox publisher required")
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
		repo:    p.Repo,
		orders:  p.Orders,
		tx:      p.Tx,
		history: p.History,
		outbox:  p.Outbox,
		metrics: p.Metrics,
		logg:    logg,
		now:     func() time.Time { return now().UTC() },
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

func (s *service) RecordPayment(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input RecordPaymentInput) (*Receipt, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if reason, err := input.validate(); err != nil {
		s.metrics.PaymentRejected(reason)
		return nil, err
	}

	var (
		receipt *Receipt
		reason  string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, scope.BranchID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
			}
			return db.Classify(err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			reason = ReasonOrderCancelled
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot record a payment on a cancelled order")
		}

		before := order.OutstandingBalance
		if !input.Kind.SettlesBalance() && input.Amount.GreaterThan(before) {
			reason = ReasonExceedsBalance
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds outstanding balance").
				WithDetails(map[string]any{
					"amount":              input.Amount.StringFixed(2),
					"outstanding_balance": before.StringFixed(2),
				})
		}
		after := orders.RecomputeBalance(before, []decimal.Decimal{input.Amount})
		change := decimal.Zero
		if input.Amount.GreaterThan(before) {
			change = input.Amount.Sub(before)
		}

		now := s.now()
		payment := models.Payment{
			ID:               uuid.New(),
			OrderID:          order.ID,
			Amount:           input.Amount,
			Method:           input.Method,
			Kind:             input.Kind,
			Reference:        optionalText(input.Reference),
			Note:             optionalText(input.Note),
			RecordedByUserID: scope.UserID,
			CreatedAt:        now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, &payment); err != nil {
			return db.Classify(err, "insert payment")
		}
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"outstanding_balance": after,
			"updated_at":          now,
		}); err != nil {
			return db.Classify(err, "update order balance")
		}

		actor := scope.UserID
		status := order.Status
		if _, err := s.history.Append(ctx, tx, history.AppendInput{
			OrderID:        order.ID,
			ActorUserID:    &actor,
			PreviousStatus: &status,
			NewStatus:      status,
			Action:         enums.HistoryActionPaymentRecorded,
			Note:           payment.Note,
			Payload: models.HistoryPayload{Payment: &models.PaymentPayload{
				PaymentID:     payment.ID,
				Amount:        payment.Amount,
				Method:        payment.Method,
				Kind:          payment.Kind,
				BalanceBefore: before,
				BalanceAfter:  after,
			}},
			At: now,
		}); err != nil {
			return err
		}

		branchID := scope.BranchID
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			BranchID:      order.BranchID,
			Actor:         &outbox.ActorRef{UserID: scope.UserID, BranchID: &branchID, Role: string(scope.Role)},
			OccurredAt:    now,
			Data: payloads.PaymentRecordedEvent{
				PaymentID:     payment.ID,
				OrderID:       order.ID,
				BranchID:      order.BranchID,
				Amount:        payment.Amount,
				Method:        payment.Method,
				Kind:          payment.Kind,
				BalanceBefore: before,
				BalanceAfter:  after,
			},
		}); err != nil {
			return err
		}

		receipt = &Receipt{
			Payment:       payment,
			OrderNumber:   order.OrderNumber,
			BalanceBefore: before,
			BalanceAfter:  after,
			Change:        change,
		}
		return nil
	})
	if err != nil {
		if reason != "" {
			s.metrics.PaymentRejected(reason)
		}
		return nil, db.Classify(err, "record payment")
	}

	s.metrics.PaymentRecorded(input.Method, input.Kind, input.Amount)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       orderID.String(),
		"payment_id":     receipt.Payment.ID.String(),
		"amount":         receipt.Payment.Amount.StringFixed(2),
		"balance_before": receipt.BalanceBefore.StringFixed(2),
		"balance_after":  receipt.BalanceAfter.StringFixed(2),
	}), "payment.recorded")
	return receipt, nil
}

func (s *service) ListPayments(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.loadOrder(ctx, scope, orderID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, db.Classify(err, "list payments")
	}
	return payments, nil
}

// Reconcile recomputes the balance from the payment rows and reports any
// drift from the stored value. It never writes.
func (s *service) Reconcile(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*ReconcileReport, error) {
	order, err := s.loadOrder(ctx, scope, orderID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, order)
}

// AuditBalances never writes. Drifted orders are logged by reconcile and
// returned for the caller to report.
func (s *service) AuditBalances(ctx context.Context, afterID uuid.UUID, limit int) (*AuditPage, error) {
	rows, err := s.orders.ListForAudit(ctx, afterID, limit)
	if err != nil {
		return nil, db.Classify(err, "list orders for audit")
	}
	page := &AuditPage{Checked: len(rows), Drifted: []ReconcileReport{}}
	for i := range rows {
		report, err := s.reconcile(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		if !report.Consistent {
			page.Drifted = append(page.Drifted, *report)
		}
		page.LastID = rows[i].ID
	}
	return page, nil
}

func (s *service) reconcile(ctx context.Context, order *models.ServiceOrder) (*ReconcileReport, error) {
	amounts, err := s.orders.PaymentAmounts(ctx, order.ID)
	if err != nil {
		return nil, db.Classify(err, "load order payments")
	}

	paid := decimal.Zero
	for _, amount := range amounts {
		paid = paid.Add(amount)
	}
	expected := orders.RecomputeBalance(order.BillableCost(), amounts)
	drift := order.OutstandingBalance.Sub(expected)
	report := &ReconcileReport{
		OrderID:         order.ID,
		BillableCost:    order.BillableCost(),
		TotalPaid:       paid,
		PaymentCount:    len(amounts),
		ExpectedBalance: expected,
		StoredBalance:   order.OutstandingBalance,
		Drift:           drift,
		Consistent:      drift.IsZero(),
	}
	if !report.Consistent {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id":         order.ID.String(),
			"branch_id":        order.BranchID.String(),
			"expected_balance": expected.StringFixed(2),
			"stored_balance":   order.OutstandingBalance.StringFixed(2),
		}), "payment ledger drift detected")
	}
	return report, nil
}

func (s *service) loadOrder(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) (*models.ServiceOrder, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, scope.BranchID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, db.Classify(err, "load order")
	}
	return order, nil
}
