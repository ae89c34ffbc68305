package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Feeledger store (SQLite).
var Migrations = migrate.NewGroup("feeledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_feeledger_payment_groups",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS feeledger_payment_groups (
    id         TEXT PRIMARY KEY,
    reference  TEXT NOT NULL DEFAULT '',
    version    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_feeledger_groups_reference ON feeledger_payment_groups (reference);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS feeledger_payment_groups`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_feeledger_fees",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS feeledger_fees (
    id                      TEXT PRIMARY KEY,
    group_id                TEXT NOT NULL DEFAULT '',
    code                    TEXT NOT NULL DEFAULT '',
    fee_version             TEXT NOT NULL DEFAULT '',
    volume                  INTEGER NOT NULL DEFAULT 1,
    calculated_amount_cents INTEGER NOT NULL DEFAULT 0,
    calculated_currency     TEXT NOT NULL DEFAULT '',
    net_amount_cents        INTEGER NOT NULL DEFAULT 0,
    net_currency            TEXT NOT NULL DEFAULT '',
    natural_account_code    TEXT NOT NULL DEFAULT '',
    memo_line               TEXT NOT NULL DEFAULT '',
    due_amount_cents        INTEGER NOT NULL DEFAULT 0,
    due_currency            TEXT NOT NULL DEFAULT '',
    allocated_amount_cents  INTEGER NOT NULL DEFAULT 0,
    allocated_currency      TEXT NOT NULL DEFAULT '',
    date_apportioned        TEXT,
    removed                 INTEGER NOT NULL DEFAULT 0,
    created_at              TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at              TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_feeledger_fees_group ON feeledger_fees (group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_feeledger_fees_code ON feeledger_fees (code, natural_account_code);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS feeledger_fees`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_feeledger_payments",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS feeledger_payments (
    id              TEXT PRIMARY KEY,
    group_id        TEXT NOT NULL DEFAULT '',
    reference       TEXT NOT NULL DEFAULT '',
    amount_cents    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    channel         TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'created',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_feeledger_payments_group ON feeledger_payments (group_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_feeledger_payments_reference ON feeledger_payments (reference) WHERE reference != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS feeledger_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_feeledger_apportionment_records",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS feeledger_apportionment_records (
    id                       TEXT PRIMARY KEY,
    payment_id               TEXT NOT NULL DEFAULT '',
    fee_id                   TEXT NOT NULL DEFAULT '',
    apportioned_amount_cents INTEGER NOT NULL DEFAULT 0,
    apportioned_currency     TEXT NOT NULL DEFAULT '',
    surplus_amount_cents     INTEGER NOT NULL DEFAULT 0,
    surplus_currency         TEXT NOT NULL DEFAULT '',
    kind                     TEXT NOT NULL DEFAULT 'allocation',
    created_at               TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at               TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_feeledger_records_payment ON feeledger_apportionment_records (payment_id) WHERE payment_id != '';
CREATE INDEX IF NOT EXISTS idx_feeledger_records_fee ON feeledger_apportionment_records (fee_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS feeledger_apportionment_records`)
				return err
			},
		},
	)
}
