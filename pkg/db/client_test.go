package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sequenceRow struct {
	ID   int    `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(&sequenceRow{}))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&sequenceRow{Code: "committed"}).Error
	}))

	var count int64
	require.NoError(t, client.DB().Model(&sequenceRow{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&sequenceRow{Code: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, client.DB().Model(&sequenceRow{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "rollback should leave the committed row only")
}

func TestUniqueViolationIsClassified(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.DB().Create(&sequenceRow{Code: "A"}).Error)

	err := client.DB().Create(&sequenceRow{Code: "A"}).Error
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err, ""))
	require.False(t, IsForeignKeyViolation(err))
}

func TestErrorClassifiersIgnoreNil(t *testing.T) {
	require.False(t, IsUniqueViolation(nil, ""))
	require.False(t, IsForeignKeyViolation(nil))
	require.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, DriverSQLite, client.Driver())
}

func TestClassifyMapsStoreErrors(t *testing.T) {
	require.Nil(t, Classify(nil, "load"))
	require.True(t, pkgerrors.IsCode(Classify(gorm.ErrRecordNotFound, "load order"), pkgerrors.CodeNotFound))
	require.True(t, pkgerrors.IsCode(Classify(gorm.ErrDuplicatedKey, "insert customer"), pkgerrors.CodeConflict))
	require.True(t, pkgerrors.IsCode(Classify(gorm.ErrForeignKeyViolated, "delete branch"), pkgerrors.CodeBlocked))
	require.True(t, pkgerrors.IsCode(Classify(errors.New("dial tcp: refused"), "ping"), pkgerrors.CodeDependency))

	typed := pkgerrors.New(pkgerrors.CodeValidation, "bad")
	require.Same(t, typed, Classify(typed, "ignored"))
}
