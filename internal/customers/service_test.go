package customers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/types"
)

func strPtr(v string) *string { return &v }

func newTestService(t *testing.T, client *db.Client) Service {
	t.Helper()
	svc, err := NewService(NewRepository(client.DB()), client, logger.Nop())
	require.NoError(t, err)
	return svc
}

func TestResolveOrCreateDedupesByCanonicalPhone(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana Lopez", Phone: "555-123-4567"})
	require.NoError(t, err)
	require.Equal(t, "5551234567", first.Phone)

	second, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana Lopez", Phone: "5551234567"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, client.DB().Model(&models.Customer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestResolveOrCreateConcurrentIntakesConverge(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)
	ctx := context.Background()

	formats := []string{"(555) 123-4567", "555-123-4567", "5551234567", "555.123.4567"}
	const workers = 8
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customer, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana Lopez", Phone: formats[i%len(formats)]})
			errs[i] = err
			if err == nil {
				ids[i] = customer.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, client.DB().Model(&models.Customer{}).Where("branch_id = ?", ws.Branch.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestResolveOrCreateRefreshesContact(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)
	ctx := context.Background()

	created, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana", Phone: "5551234567"})
	require.NoError(t, err)

	updated, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{
		FullName: "  Ana   Lopez ",
		Phone:    "(555) 123 4567",
		Email:    strPtr(" Ana@Example.com "),
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)

	stored, err := svc.Get(ctx, ws.Branch.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana Lopez", stored.FullName)
	require.Equal(t, "ana@example.com", *stored.Email)

	// Omitted email keeps the stored one.
	again, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana Lopez", Phone: "5551234567"})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", *again.Email)
}

func TestResolveOrCreateIsBranchScoped(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	north := dbtest.Branch(t, client, ws.Tenant.ID, "NOR")
	svc := newTestService(t, client)
	ctx := context.Background()

	a, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana", Phone: "5551234567"})
	require.NoError(t, err)
	b, err := svc.ResolveOrCreate(ctx, nil, north.ID, CustomerInput{FullName: "Ana", Phone: "5551234567"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	_, err = svc.Get(ctx, north.ID, a.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResolveOrCreateValidation(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)

	_, err := svc.ResolveOrCreate(context.Background(), nil, ws.Branch.ID, CustomerInput{FullName: "Ana", Phone: "555-12"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ResolveOrCreate(context.Background(), nil, ws.Branch.ID, CustomerInput{FullName: "  ", Phone: "5551234567"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, client.DB().Model(&models.Customer{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestFindByPhoneAndUpdate(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)
	ctx := context.Background()

	created, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana", Phone: "5551234567", Email: strPtr("ana@example.com")})
	require.NoError(t, err)

	found, err := svc.FindByPhone(ctx, ws.Branch.ID, "(555) 123-4567")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	updated, err := svc.Update(ctx, ws.Branch.ID, created.ID, UpdateInput{
		FullName: strPtr("Ana Maria"),
		Email:    types.Nullable[string]{Set: true},
	})
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", updated.FullName)
	require.Nil(t, updated.Email)

	_, err = svc.Update(ctx, ws.Branch.ID, created.ID, UpdateInput{FullName: strPtr(" ")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Update(ctx, ws.Branch.ID, uuid.New(), UpdateInput{FullName: strPtr("X")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteBlockedWhileOrdersReferenceCustomer(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc := newTestService(t, client)
	ctx := context.Background()

	customer, err := svc.ResolveOrCreate(ctx, nil, ws.Branch.ID, CustomerInput{FullName: "Ana", Phone: "5551234567"})
	require.NoError(t, err)
	equipment := models.EquipmentType{ID: uuid.New(), BranchID: ws.Branch.ID, Name: "LAPTOP"}
	require.NoError(t, client.DB().Create(&equipment).Error)
	order := models.ServiceOrder{
		ID:              uuid.New(),
		BranchID:        ws.Branch.ID,
		CustomerID:      customer.ID,
		EquipmentTypeID: equipment.ID,
		OrderNumber:     "OS-CEN-260101-00001",
		Status:          enums.OrderStatusPending,
		ReportedProblem: "screen",
		CreatedByUserID: ws.Staff.UserID,
		IntakeAt:        time.Now().UTC(),
	}
	require.NoError(t, client.DB().Create(&order).Error)

	err = svc.Delete(ctx, ws.Branch.ID, customer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBlocked), "got %v", err)

	require.NoError(t, client.DB().Where("id = ?", order.ID).Delete(&models.ServiceOrder{}).Error)
	require.NoError(t, svc.Delete(ctx, ws.Branch.ID, customer.ID))

	err = svc.Delete(ctx, ws.Branch.ID, customer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
