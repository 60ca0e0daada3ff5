package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	keys        map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) Set(_ context.Context, key string, _ any, _ time.Duration) error {
	f.keys[key] = true
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "rd:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.lastDeleted = key
	}
	return nil
}

func TestClaimIsFirstWriterWins(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	eventID := uuid.New()
	already, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	if err != nil || already {
		t.Fatalf("expected first claim to succeed, already=%v err=%v", already, err)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}

	already, err = guard.Claim(context.Background(), "outbox-publisher", eventID)
	if err != nil || !already {
		t.Fatalf("expected second claim to report duplicate, already=%v err=%v", already, err)
	}
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	guard, _ := NewGuard(store, time.Hour)
	eventID := uuid.New()

	if _, err := guard.Claim(context.Background(), "outbox-publisher", eventID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := guard.Release(context.Background(), "outbox-publisher", eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	expected := "rd:idempotency:evt:published:outbox-publisher:" + eventID.String()
	if store.lastDeleted != expected {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
	already, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	if err != nil || already {
		t.Fatalf("expected claim after release to succeed, already=%v err=%v", already, err)
	}
}

func TestClaimValidatesInput(t *testing.T) {
	guard, _ := NewGuard(newFakeStore(), time.Hour)
	if _, err := guard.Claim(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected publisher name error")
	}
	if _, err := guard.Claim(context.Background(), "outbox-publisher", uuid.Nil); err == nil {
		t.Fatal("expected event id error")
	}
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected store required error")
	}
}

func TestClaimPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	guard, _ := NewGuard(store, time.Hour)
	if _, err := guard.Claim(context.Background(), "outbox-publisher", uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
