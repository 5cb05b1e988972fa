// Package plugin provides an extensible plugin system for Dues.
// Plugins can hook into fee lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Member lifecycle hooks
// ──────────────────────────────────────────────────

// OnMemberCreated is called when a new member is created.
type OnMemberCreated interface {
	Plugin
	OnMemberCreated(ctx context.Context, m interface{}) error
}

// OnMemberReactivated is called when a member returns from "left" to "active".
type OnMemberReactivated interface {
	Plugin
	OnMemberReactivated(ctx context.Context, m interface{}) error
}

// ──────────────────────────────────────────────────
// Fee lifecycle hooks
// ──────────────────────────────────────────────────

// OnFeeCreated is called when a fee ledger record is created.
type OnFeeCreated interface {
	Plugin
	OnFeeCreated(ctx context.Context, f interface{}) error
}

// OnFeePaid is called when a fee payment is recorded.
type OnFeePaid interface {
	Plugin
	OnFeePaid(ctx context.Context, f interface{}) error
}

// OnFeeRolledOver is called when payment spawns the next period's fee.
type OnFeeRolledOver interface {
	Plugin
	OnFeeRolledOver(ctx context.Context, paid, next interface{}) error
}

// OnFeesRepriced is called after a gym's open fees are bulk-repriced.
type OnFeesRepriced interface {
	Plugin
	OnFeesRepriced(ctx context.Context, gymID string, feesTouched, membersTouched int64) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftRepaired is called when a sync pass repaired ledger/history drift.
type OnDriftRepaired interface {
	Plugin
	OnDriftRepaired(ctx context.Context, memberID string, created, appended int) error
}

// OnStatusRefreshed is called when a member's fee status is promoted on read.
type OnStatusRefreshed interface {
	Plugin
	OnStatusRefreshed(ctx context.Context, memberID string, from, to string) error
}

// ──────────────────────────────────────────────────
// Settings and expense hooks
// ──────────────────────────────────────────────────

// OnSettingsUpdated is called when a user's fee settings change.
type OnSettingsUpdated interface {
	Plugin
	OnSettingsUpdated(ctx context.Context, s interface{}) error
}

// OnExpenseRecorded is called when an expense is recorded.
type OnExpenseRecorded interface {
	Plugin
	OnExpenseRecorded(ctx context.Context, e interface{}) error
}

// callTimeout bounds each plugin callback so a misbehaving plugin cannot
// stall the fee pipeline.
const callTimeout = 5 * time.Second
