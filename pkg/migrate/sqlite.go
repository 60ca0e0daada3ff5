package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local sqlite runs. Enum
// columns become TEXT and numeric columns keep their decimal text form.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		legal_name TEXT,
		tax_id TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		disabled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_branches_tenant_code ON branches (tenant_id, code)`,
	`CREATE TABLE IF NOT EXISTS staff_members (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		branch_id TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_staff_members_user_branch ON staff_members (user_id, branch_id)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL REFERENCES branches(id),
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_customers_branch_phone ON customers (branch_id, phone)`,
	`CREATE TABLE IF NOT EXISTS equipment_types (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL REFERENCES branches(id),
		name TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_equipment_types_branch_name ON equipment_types (branch_id, name)`,
	`CREATE TABLE IF NOT EXISTS brand_models (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL REFERENCES branches(id),
		brand TEXT NOT NULL,
		model TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_brand_models_branch_pair ON brand_models (branch_id, brand, model)`,
	`CREATE TABLE IF NOT EXISTS order_sequences (
		branch_id TEXT PRIMARY KEY REFERENCES branches(id),
		last_value INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS service_orders (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL REFERENCES branches(id),
		customer_id TEXT NOT NULL REFERENCES customers(id),
		equipment_type_id TEXT NOT NULL REFERENCES equipment_types(id),
		brand_model_id TEXT REFERENCES brand_models(id),
		order_number TEXT NOT NULL,
		status TEXT NOT NULL,
		serial_number TEXT,
		accessories TEXT,
		reported_problem TEXT NOT NULL,
		diagnosis TEXT,
		repair_performed TEXT,
		notes TEXT,
		estimated_cost TEXT,
		final_cost TEXT,
		outstanding_balance TEXT NOT NULL DEFAULT '0',
		signature_url TEXT,
		signature_object_key TEXT,
		created_by_user_id TEXT NOT NULL,
		intake_at DATETIME NOT NULL,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_service_orders_order_number ON service_orders (order_number)`,
	`CREATE TABLE IF NOT EXISTS order_photos (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES service_orders(id),
		url TEXT NOT NULL,
		object_key TEXT NOT NULL,
		content_type TEXT NOT NULL,
		caption TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS order_history_entries (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES service_orders(id),
		actor_user_id TEXT,
		previous_status TEXT,
		new_status TEXT NOT NULL,
		action TEXT NOT NULL,
		note TEXT,
		payload TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES service_orders(id),
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		kind TEXT NOT NULL,
		reference TEXT,
		note TEXT,
		recorded_by_user_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// ApplySQLiteSchema creates every table and unique index on a sqlite database.
func ApplySQLiteSchema(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
