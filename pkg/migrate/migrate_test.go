package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	entries, err := fs.ReadDir(embedded, EmbeddedDir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			b, err := fs.ReadFile(embedded, EmbeddedDir+"/"+e.Name())
			require.NoError(t, err)
			return string(b)
		}
	}
	t.Fatalf("no migration ending in %s", suffix)
	return ""
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir(""))
	require.NoError(t, ValidateDir(EmbeddedDir))
}

func TestServiceOrdersMigrationConstraints(t *testing.T) {
	content := readMigration(t, "_create_service_orders.sql")
	for _, check := range []string{
		"CREATE TABLE IF NOT EXISTS service_orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_service_orders_order_number ON service_orders (order_number)",
		"CHECK (outstanding_balance >= 0)",
		"REFERENCES customers(id) ON DELETE RESTRICT",
		"REFERENCES service_orders(id) ON DELETE CASCADE",
	} {
		require.Contains(t, content, check)
	}
}

func TestCatalogMigrationUniqueness(t *testing.T) {
	content := readMigration(t, "_create_customers_catalog.sql")
	require.Contains(t, content, "ux_customers_branch_phone ON customers (branch_id, phone)")
	require.Contains(t, content, "ux_equipment_types_branch_name ON equipment_types (branch_id, name)")
	require.Contains(t, content, "ux_brand_models_branch_pair ON brand_models (branch_id, brand, model)")
}

func TestPaymentsMigrationRejectsNonPositiveAmounts(t *testing.T) {
	content := readMigration(t, "_create_payments_history.sql")
	require.Contains(t, content, "CHECK (amount > 0)")
	require.Contains(t, content, "payload jsonb")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Order Tags!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_order_tags.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "Add Order Tags!", now)
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestMaybeRunDevAppliesSQLiteSchema(t *testing.T) {
	client, err := db.NewSQLite("file:migrate_autorun?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvProd},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true, UseSQLite: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	var count int64
	require.NoError(t, client.DB().Raw("SELECT COUNT(*) FROM service_orders").Scan(&count).Error)
	require.Zero(t, count)
}

func TestMaybeRunDevSkipsWhenDisabled(t *testing.T) {
	client, err := db.NewSQLite("file:migrate_disabled?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvDev}}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))
	require.Error(t, client.DB().Exec("SELECT 1 FROM service_orders").Error)
}
