package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the treasury store.
var Migrations = migrate.NewGroup("treasury")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_treasury_tokens",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_tokens (
    token TEXT PRIMARY KEY
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_balances",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_balances (
    tenant_id BIGINT NOT NULL,
    token     TEXT NOT NULL,
    amount    TEXT NOT NULL DEFAULT '0',
    PRIMARY KEY (tenant_id, token)
);

CREATE TABLE IF NOT EXISTS treasury_operator_balances (
    token  TEXT PRIMARY KEY,
    amount TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_treasury_balances_token ON treasury_balances (token);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS treasury_balances;
DROP TABLE IF EXISTS treasury_operator_balances;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_caps",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_caps (
    tenant_id BIGINT NOT NULL,
    token     TEXT NOT NULL,
    tx_cap    TEXT NOT NULL DEFAULT '0',
    daily_cap TEXT NOT NULL DEFAULT '0',
    PRIMARY KEY (tenant_id, token)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_caps`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_fees",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_fees (
    token   TEXT PRIMARY KEY,
    percent SMALLINT NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_fees`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_queues",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_queues (
    tenant_id   BIGINT NOT NULL,
    token       TEXT NOT NULL,
    recipient   TEXT NOT NULL,
    initialized BOOLEAN NOT NULL DEFAULT FALSE,
    first_index TEXT NOT NULL DEFAULT '1',
    last_index  TEXT NOT NULL DEFAULT '0',
    entries     JSONB NOT NULL DEFAULT '[]',
    PRIMARY KEY (tenant_id, token, recipient)
);

CREATE INDEX IF NOT EXISTS idx_treasury_queues_tenant ON treasury_queues (tenant_id, token);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_queues`)
				return err
			},
		},
	)
}
