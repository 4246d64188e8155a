package cart

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/attributes"
	"github.com/haanhtuan/storefront-backend/internal/pricing"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/outbox"
)

var cartTestDDL = []string{
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  thumbnail_url TEXT,
  base_price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
  product_id TEXT PRIMARY KEY,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  last_cost NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS attribute_groups (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'other',
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS attribute_values (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  name TEXT NOT NULL,
  surcharge NUMERIC NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS product_attribute_links (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  attribute_value_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS sale_campaigns (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS campaign_assignments (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  discount_type TEXT NOT NULL,
  value NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  options TEXT,
  attribute_value_ids TEXT,
  line_key TEXT NOT NULL,
  size_snapshot TEXT,
  toppings TEXT,
  other_attributes TEXT,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  extras_total NUMERIC NOT NULL DEFAULT 0,
  line_total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_lines_user_line_key ON cart_lines (user_id, line_key);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`,
}

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range cartTestDDL {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newCartTestService(t *testing.T, db *gorm.DB, now time.Time) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})

	attrRepo := attributes.NewRepository(db)
	attrs, err := attributes.NewService(attrRepo, logg)
	require.NoError(t, err)

	priceRepo := pricing.NewRepository(db)
	pricer, err := pricing.NewService(priceRepo, logg)
	require.NoError(t, err)

	events := outbox.NewService(outbox.NewRepository(db), logg)

	svc, err := NewService(ServiceParams{
		DB:        &testTxRunner{db: db},
		Repo:      NewRepository(db),
		AttrRepo:  attrRepo,
		Attrs:     attrs,
		PriceRepo: priceRepo,
		Pricer:    pricer,
		Events:    events,
		Logger:    logg,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, slug string, basePrice int64, active bool, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, slug, name, base_price, is_active) VALUES (?, ?, ?, ?, ?)`,
		id.String(), slug, slug, decimal.NewFromInt(basePrice), active,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO inventory_items (product_id, stock_qty) VALUES (?, ?)`,
		id.String(), stock,
	).Error)
	return id
}

func seedAttributeValue(t *testing.T, db *gorm.DB, productID uuid.UUID, group string, kind enums.AttributeKind, name string, surcharge int64) uuid.UUID {
	t.Helper()

	groupID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(group))
	require.NoError(t, db.Exec(
		`INSERT INTO attribute_groups (id, name, kind) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		groupID.String(), group, kind.String(),
	).Error)

	valueID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO attribute_values (id, group_id, name, surcharge) VALUES (?, ?, ?, ?)`,
		valueID.String(), groupID.String(), name, decimal.NewFromInt(surcharge),
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO product_attribute_links (id, product_id, attribute_value_id, is_active) VALUES (?, ?, ?, 1)`,
		uuid.NewString(), productID.String(), valueID.String(),
	).Error)
	return valueID
}

func seedActiveCampaign(t *testing.T, db *gorm.DB, productID uuid.UUID, discountType enums.DiscountType, value int64, now time.Time) {
	t.Helper()

	campaignID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO sale_campaigns (id, name, status, starts_at, ends_at) VALUES (?, 'Sale', 'active', ?, ?)`,
		campaignID.String(), now.Add(-time.Hour), now.Add(time.Hour),
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO campaign_assignments (id, campaign_id, product_id, discount_type, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), campaignID.String(), productID.String(), discountType.String(), decimal.NewFromInt(value), now,
	).Error)
}

func countOutboxEvents(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Table("outbox_events").Where("event_type = ?", eventType).Count(&count).Error)
	return count
}
