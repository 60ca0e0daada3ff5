package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the staff member whose request produced the event.
type ActorRef struct {
	UserID   uuid.UUID  `json:"userId"`
	BranchID *uuid.UUID `json:"branchId,omitempty"`
	Role     string     `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published as the
// message body. EventID doubles as the consumer dedupe key.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	BranchID   uuid.UUID       `json:"branchId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
