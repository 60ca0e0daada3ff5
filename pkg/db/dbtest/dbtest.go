// Package dbtest boots an in-memory sqlite database carrying the same tables,
// unique indexes and foreign keys as the postgres migrations.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/migrate"
)

// New returns a client over a fresh, isolated in-memory database.
func New(t *testing.T) *db.Client {
	t.Helper()
	client, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.ApplySQLiteSchema(context.Background(), client.DB()); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
