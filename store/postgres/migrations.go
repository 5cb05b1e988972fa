package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Dues store.
var Migrations = migrate.NewGroup("dues")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_dues_members",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_members (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    email        TEXT NOT NULL DEFAULT '',
    phone        TEXT NOT NULL DEFAULT '',
    gender       TEXT NOT NULL DEFAULT '',
    join_date    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status       TEXT NOT NULL DEFAULT 'active',
    fee_status   TEXT NOT NULL DEFAULT 'pending',
    last_payment TIMESTAMPTZ,
    fee_history  JSONB NOT NULL DEFAULT '[]',
    gym_id       TEXT NOT NULL DEFAULT '',
    user_id      TEXT NOT NULL DEFAULT '',
    version      BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dues_members_email ON dues_members (email);
CREATE INDEX IF NOT EXISTS idx_dues_members_gym_status ON dues_members (gym_id, status);
CREATE INDEX IF NOT EXISTS idx_dues_members_gym_fee_status ON dues_members (gym_id, fee_status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_members`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_dues_fees",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_fees (
    id              TEXT PRIMARY KEY,
    member_id       TEXT NOT NULL DEFAULT '',
    gym_id          TEXT NOT NULL DEFAULT '',
    amount_minor    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    period          TEXT NOT NULL DEFAULT '',
    due_date        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status          TEXT NOT NULL DEFAULT 'pending',
    paid_date       TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dues_fees_member_period ON dues_fees (member_id, period);
CREATE INDEX IF NOT EXISTS idx_dues_fees_gym_status ON dues_fees (gym_id, status);
CREATE INDEX IF NOT EXISTS idx_dues_fees_due_date ON dues_fees (due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_fees`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_dues_gyms",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_gyms (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL DEFAULT '',
    location             TEXT NOT NULL DEFAULT '',
    owner_id             TEXT NOT NULL DEFAULT '',
    monthly_fee_minor    BIGINT NOT NULL DEFAULT 0,
    monthly_fee_currency TEXT NOT NULL DEFAULT '',
    subscription_status  TEXT NOT NULL DEFAULT 'active',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dues_gyms_owner ON dues_gyms (owner_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_gyms`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_dues_settings",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_settings (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL DEFAULT '',
    monthly_fee_minor    BIGINT NOT NULL DEFAULT 0,
    monthly_fee_currency TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dues_settings_user ON dues_settings (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_settings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_dues_users",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    email         TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    gym_id        TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'staff',
    authorized    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dues_users_email ON dues_users (email);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_dues_expenses",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dues_expenses (
    id              TEXT PRIMARY KEY,
    gym_id          TEXT NOT NULL DEFAULT '',
    user_id         TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    amount_minor    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL DEFAULT 'other',
    date            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dues_expenses_gym_date ON dues_expenses (gym_id, date);
CREATE INDEX IF NOT EXISTS idx_dues_expenses_gym_category ON dues_expenses (gym_id, category);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS dues_expenses`)
				return err
			},
		},
	)
}
