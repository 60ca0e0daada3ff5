package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/pkg/redis"
)

// Guard remembers which envelope event IDs a publisher already pushed, so a
// crash between publishing and marking the outbox row does not emit twice.
// Keys follow the `rd:idempotency:evt:published:<publisher>:<event_id>` pattern.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim returns true when the event was already claimed; otherwise it claims it.
func (g *Guard) Claim(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(publisher, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops a claim after a failed publish so the next attempt can retry.
func (g *Guard) Release(ctx context.Context, publisher string, eventID uuid.UUID) error {
	key, err := g.key(publisher, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(publisher string, eventID uuid.UUID) (string, error) {
	if publisher == "" {
		return "", errors.New("publisher name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(fmt.Sprintf("evt:published:%s", publisher), eventID.String()), nil
}
