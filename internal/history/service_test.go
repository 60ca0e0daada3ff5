package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.OrderHistoryEntry) error
	entries  []models.OrderHistoryEntry
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.OrderHistoryEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID, ascending bool) ([]models.OrderHistoryEntry, error) {
	return f.entries, nil
}

func (f *fakeRepository) CountByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return int64(len(f.entries)), nil
}

func statusPtr(s enums.OrderStatus) *enums.OrderStatus { return &s }

func TestService_AppendCreation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	actor := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CST", -6*3600))
	entry, err := svc.Append(context.Background(), &gorm.DB{}, AppendInput{
		OrderID:     uuid.New(),
		ActorUserID: &actor,
		NewStatus:   enums.OrderStatusPending,
		Action:      enums.HistoryActionCreation,
		At:          at,
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(repo.entries))
	}
	if entry.ID == uuid.Nil {
		t.Fatal("expected entry id to be assigned")
	}
	if entry.CreatedAt.Location() != time.UTC || !entry.CreatedAt.Equal(at) {
		t.Fatalf("expected UTC timestamp equal to input, got %v", entry.CreatedAt)
	}
}

func TestService_AppendValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})
	ctx := context.Background()
	orderID := uuid.New()

	cases := map[string]AppendInput{
		"missing order":           {NewStatus: enums.OrderStatusPending, Action: enums.HistoryActionCreation},
		"bad status":              {OrderID: orderID, NewStatus: "LOST", Action: enums.HistoryActionOther, PreviousStatus: statusPtr(enums.OrderStatusPending)},
		"bad action":              {OrderID: orderID, NewStatus: enums.OrderStatusPending, Action: "edit", PreviousStatus: statusPtr(enums.OrderStatusPending)},
		"creation with previous":  {OrderID: orderID, NewStatus: enums.OrderStatusPending, Action: enums.HistoryActionCreation, PreviousStatus: statusPtr(enums.OrderStatusPending)},
		"change without previous": {OrderID: orderID, NewStatus: enums.OrderStatusInRepair, Action: enums.HistoryActionStatusChange},
	}
	for name, input := range cases {
		if _, err := svc.Append(ctx, &gorm.DB{}, input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	if _, err := svc.Append(ctx, nil, AppendInput{OrderID: orderID, NewStatus: enums.OrderStatusPending, Action: enums.HistoryActionCreation}); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestService_AppendRepositoryError(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, entry *models.OrderHistoryEntry) error {
		return errors.New("disk full")
	}}
	svc, _ := NewService(repo)
	_, err := svc.Append(context.Background(), &gorm.DB{}, AppendInput{
		OrderID:   uuid.New(),
		NewStatus: enums.OrderStatusPending,
		Action:    enums.HistoryActionCreation,
	})
	if err == nil {
		t.Fatal("expected repository error to surface")
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
