package orders

import (
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// workflow is the forward path of a repair.
var workflow = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusUnderReview,
	enums.OrderStatusInRepair,
	enums.OrderStatusRepaired,
	enums.OrderStatusDelivered,
}

// StateMachine validates status transitions. In permissive mode any known
// status may follow any other so staff can correct mistakes; strict mode only
// allows forward moves, cancellation of open orders and reopening a delivered
// order for warranty work.
type StateMachine struct {
	strict bool
}

func NewStateMachine(strict bool) StateMachine {
	return StateMachine{strict: strict}
}

func (m StateMachine) Strict() bool {
	return m.strict
}

// Allowed reports whether from → to is permitted. Writing the current status
// again is always allowed and records field edits only.
func (m StateMachine) Allowed(from, to enums.OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to || !m.strict {
		return true
	}
	switch {
	case to == enums.OrderStatusCancelled:
		return !from.IsTerminal()
	case from == enums.OrderStatusDelivered:
		return to == enums.OrderStatusInRepair
	case from == enums.OrderStatusCancelled:
		return false
	}
	return rank(to) > rank(from)
}

// Validate returns a typed error when to is unknown or not reachable from from.
func (m StateMachine) Validate(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": string(to)})
	}
	if !m.Allowed(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": string(from), "to": string(to)})
	}
	return nil
}

func rank(status enums.OrderStatus) int {
	for i, candidate := range workflow {
		if candidate == status {
			return i
		}
	}
	return -1
}
