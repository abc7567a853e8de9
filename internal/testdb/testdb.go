// Package testdb opens throwaway sqlite databases for repository and
// service tests. The DDL mirrors the postgres migrations with the
// postgres-only pieces (uuid defaults, partial indexes) dropped; tests
// assign ids explicitly.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL DEFAULT '',
  price_minor INTEGER NOT NULL,
  stock INTEGER NOT NULL CHECK (stock >= 0),
  weight_grams INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE vouchers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  store_id TEXT,
  type TEXT NOT NULL,
  scope TEXT NOT NULL DEFAULT 'all_products',
  percent INTEGER NOT NULL DEFAULT 0,
  max_discount_minor INTEGER NOT NULL DEFAULT 0,
  fixed_amount_minor INTEGER NOT NULL DEFAULT 0,
  min_transaction_minor INTEGER NOT NULL DEFAULT 0,
  quota INTEGER NOT NULL,
  remaining_quota INTEGER NOT NULL CHECK (remaining_quota >= 0),
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE voucher_products (
  voucher_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  PRIMARY KEY (voucher_id, product_id)
);`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  applied_voucher_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price_minor INTEGER NOT NULL,
  is_selected INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
	`CREATE TABLE shipping_selections (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  courier_code TEXT NOT NULL,
  service_code TEXT NOT NULL,
  fee_minor INTEGER NOT NULL,
  etd_min_days INTEGER NOT NULL DEFAULT 0,
  etd_max_days INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, store_id)
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_unpaid',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal_minor INTEGER NOT NULL,
  shipping_minor INTEGER NOT NULL,
  discount_minor INTEGER NOT NULL DEFAULT 0,
  total_minor INTEGER NOT NULL,
  courier_code TEXT NOT NULL,
  service_code TEXT NOT NULL,
  etd_min_days INTEGER NOT NULL DEFAULT 0,
  etd_max_days INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (total_minor = subtotal_minor + shipping_minor - discount_minor)
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_minor INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  subtotal_minor INTEGER NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE order_status_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  old_status TEXT,
  new_status TEXT NOT NULL,
  actor TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  snap_token TEXT,
  redirect_url TEXT,
  amount_minor INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  raw_gateway_status TEXT,
  last_notification_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE voucher_applications (
  id TEXT PRIMARY KEY,
  voucher_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  discount_minor INTEGER NOT NULL,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with the full schema applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same in-memory schema.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
