package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the stock ledger store.
var Migrations = migrate.NewGroup("stockledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_stockledger_products",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_products (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_products`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_skus",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_skus (
    id                TEXT PRIMARY KEY,
    code              TEXT NOT NULL,
    product_id        TEXT NOT NULL,
    price             TEXT NOT NULL DEFAULT '0',
    cost              TEXT NOT NULL DEFAULT '0',
    stock             INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    reserved          INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
    reorder_point     INTEGER NOT NULL DEFAULT 0,
    reorder_quantity  INTEGER NOT NULL DEFAULT 0,
    active            INTEGER NOT NULL DEFAULT 1,
    deleted_at        INTEGER,
    version           INTEGER NOT NULL DEFAULT 1,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_stockledger_skus_code ON stockledger_skus (code) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_stockledger_skus_product ON stockledger_skus (product_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_skus`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_transactions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_transactions (
    id                 TEXT PRIMARY KEY,
    sku_id             TEXT NOT NULL REFERENCES stockledger_skus (id),
    sequence           INTEGER NOT NULL DEFAULT 0,
    type               TEXT NOT NULL,
    quantity           INTEGER NOT NULL,
    reserved_consumed  INTEGER NOT NULL DEFAULT 0,
    reference_id       TEXT NOT NULL DEFAULT '',
    reference_type     TEXT NOT NULL DEFAULT '',
    reason             TEXT NOT NULL DEFAULT '',
    performed_by       TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_stockledger_tx_sku_sequence ON stockledger_transactions (sku_id, sequence);
CREATE INDEX IF NOT EXISTS idx_stockledger_tx_sku_created ON stockledger_transactions (sku_id, created_at);
CREATE INDEX IF NOT EXISTS idx_stockledger_tx_reference ON stockledger_transactions (reference_id);
CREATE INDEX IF NOT EXISTS idx_stockledger_tx_type_created ON stockledger_transactions (type, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_transactions`)
				return err
			},
		},
	)
}
