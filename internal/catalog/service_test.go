package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "XPS 13", CanonicalName("  xps    13 "))
	assert.Equal(t, "IMPRESORA", CanonicalName("impresora"))
	assert.Equal(t, "", CanonicalName(" \t "))
	assert.Equal(t, CanonicalName("Laptop Gamer"), CanonicalName(CanonicalName("Laptop Gamer")))
}

func TestResolveEquipmentTypeIsCaseInsensitive(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc, err := NewService(NewRepository(client.DB()), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, "impresora")
	require.NoError(t, err)
	second, err := svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, "  IMPRESORA ")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "IMPRESORA", second.Name)

	var count int64
	require.NoError(t, client.DB().Model(&models.EquipmentType{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	_, err = svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, "   ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveBrandModelPairUniqueness(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc, err := NewService(NewRepository(client.DB()), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	a, err := svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, "dell", "xps 13")
	require.NoError(t, err)
	b, err := svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, "DELL", "XPS  13")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, "DELL", b.Brand)
	require.Equal(t, "XPS 13", b.Model)

	c, err := svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, "DELL", "")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, c.ID)

	_, err = svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, "", " ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveBrandModelConcurrentCallsShareOneRow(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc, err := NewService(NewRepository(client.DB()), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	spellings := [][2]string{{"dell", "xps 13"}, {"DELL", "XPS  13"}, {" Dell ", "Xps 13"}}
	const workers = 6
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := spellings[i%len(spellings)]
			bm, err := svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, pair[0], pair[1])
			errs[i] = err
			if err == nil {
				ids[i] = bm.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, client.DB().Model(&models.BrandModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestListEquipmentTypesTreatsWildcardsLiterally(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc, err := NewService(NewRepository(client.DB()), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"USB_HUB", "USBXHUB", "UPS 100%", "UPS 1000"} {
		_, err := svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, name)
		require.NoError(t, err)
	}

	underscore, err := svc.ListEquipmentTypes(ctx, ws.Branch.ID, "usb_", 10)
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "USB_HUB", underscore[0].Name)

	percent, err := svc.ListEquipmentTypes(ctx, ws.Branch.ID, "ups 100%", 10)
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "UPS 100%", percent[0].Name)
}

func TestIncrementUsageOrdersSuggestions(t *testing.T) {
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	svc, err := NewService(NewRepository(client.DB()), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	laptop, err := svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, "laptop")
	require.NoError(t, err)
	phone, err := svc.ResolveEquipmentType(ctx, nil, ws.Branch.ID, "phone")
	require.NoError(t, err)
	pair, err := svc.ResolveBrandModel(ctx, nil, ws.Branch.ID, "apple", "iphone 12")
	require.NoError(t, err)

	require.NoError(t, svc.IncrementUsage(ctx, nil, phone.ID, &pair.ID))
	require.NoError(t, svc.IncrementUsage(ctx, nil, phone.ID, nil))
	require.NoError(t, svc.IncrementUsage(ctx, nil, laptop.ID, nil))

	types, err := svc.ListEquipmentTypes(ctx, ws.Branch.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, types, 2)
	require.Equal(t, "PHONE", types[0].Name)
	require.EqualValues(t, 2, types[0].UsageCount)

	filtered, err := svc.ListEquipmentTypes(ctx, ws.Branch.ID, "lap", 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	pairs, err := svc.ListBrandModels(ctx, ws.Branch.ID, "Apple", 10)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.EqualValues(t, 1, pairs[0].UsageCount)
}
