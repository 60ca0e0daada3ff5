package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox/payloads"
)

// UpdateStatus writes a status and any supplied field edits under a row lock
// and appends exactly one history entry, even when nothing changed.
func (s *service) UpdateStatus(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input UpdateStatusInput) (*models.ServiceOrder, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		order    *models.ServiceOrder
		previous enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, scope.BranchID, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		order = current
		previous = current.Status
		if err := s.machine.Validate(previous, input.Status); err != nil {
			return err
		}

		now := s.now()
		edit := newOrderEdit()
		edit.text("notes", &order.Notes, input.Notes)
		edit.text("diagnosis", &order.Diagnosis, input.Diagnosis)
		edit.text("repair_performed", &order.RepairPerformed, input.RepairPerformed)
		edit.cost("estimated_cost", &order.EstimatedCost, input.EstimatedCost)
		edit.cost("final_cost", &order.FinalCost, input.FinalCost)

		if input.Status != previous {
			edit.updates["status"] = input.Status
			order.Status = input.Status
		}
		if input.Status == enums.OrderStatusDelivered && order.CompletedAt == nil {
			order.CompletedAt = &now
			edit.updates["completed_at"] = now
		}

		if edit.costChanged {
			amounts, err := repo.PaymentAmounts(ctx, order.ID)
			if err != nil {
				return db.Classify(err, "load order payments")
			}
			balance := RecomputeBalance(order.BillableCost(), amounts)
			if !balance.Equal(order.OutstandingBalance) {
				edit.change("outstanding_balance", money(order.OutstandingBalance), money(balance))
				edit.updates["outstanding_balance"] = balance
				order.OutstandingBalance = balance
			}
		}

		if len(edit.updates) > 0 {
			edit.updates["updated_at"] = now
			if err := repo.Update(ctx, order.ID, edit.updates); err != nil {
				return db.Classify(err, "update order")
			}
		}

		action := enums.HistoryActionStatusChange
		if input.Status == previous {
			action = enums.HistoryActionOther
		}
		actor := scope.UserID
		prev := previous
		if _, err := s.history.Append(ctx, tx, history.AppendInput{
			OrderID:        order.ID,
			ActorUserID:    &actor,
			PreviousStatus: &prev,
			NewStatus:      order.Status,
			Action:         action,
			Note:           trimmedOrNil(input.Notes),
			Payload:        models.HistoryPayload{Changes: edit.changes},
			At:             now,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   order.ID,
			BranchID:      order.BranchID,
			Actor:         actorRef(scope),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:            order.ID,
				OrderNumber:        order.OrderNumber,
				BranchID:           order.BranchID,
				PreviousStatus:     previous,
				Status:             order.Status,
				OutstandingBalance: order.OutstandingBalance,
				CompletedAt:        order.CompletedAt,
			},
		})
	})
	if err != nil {
		return nil, db.Classify(err, "update order status")
	}

	if previous != order.Status {
		s.metrics.StatusTransition(previous, order.Status)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":        order.ID.String(),
		"branch_id":       order.BranchID.String(),
		"previous_status": string(previous),
		"status":          string(order.Status),
	}), "order.status_changed")
	return order, nil
}

// RecomputeBalance is max(0, cost - sum(payments)).
func RecomputeBalance(cost decimal.Decimal, payments []decimal.Decimal) decimal.Decimal {
	paid := decimal.Zero
	for _, amount := range payments {
		paid = paid.Add(amount)
	}
	balance := cost.Sub(paid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// orderEdit collects column updates and their history diff.
type orderEdit struct {
	updates     map[string]any
	changes     []models.FieldChange
	costChanged bool
}

func newOrderEdit() *orderEdit {
	return &orderEdit{updates: map[string]any{}}
}

func (e *orderEdit) change(field string, from, to *string) {
	e.changes = append(e.changes, models.FieldChange{Field: field, From: from, To: to})
}

// text applies next to *current when supplied and different. A blank value clears the field.
func (e *orderEdit) text(field string, current **string, next *string) {
	if next == nil {
		return
	}
	value := trimmedOrNil(next)
	if equalText(*current, value) {
		return
	}
	e.change(field, *current, value)
	*current = value
	if value == nil {
		e.updates[field] = nil
	} else {
		e.updates[field] = *value
	}
}

func (e *orderEdit) cost(field string, current **decimal.Decimal, next *decimal.Decimal) {
	if next == nil {
		return
	}
	value := next.Round(2)
	if *current != nil && (*current).Equal(value) {
		return
	}
	var from *string
	if *current != nil {
		from = money(**current)
	}
	e.change(field, from, money(value))
	*current = &value
	e.updates[field] = value
	e.costChanged = true
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func money(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
