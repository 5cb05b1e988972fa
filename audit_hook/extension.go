// Package audithook bridges Dues lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/dues/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnMemberCreated     = (*Extension)(nil)
	_ plugin.OnMemberReactivated = (*Extension)(nil)
	_ plugin.OnFeeCreated        = (*Extension)(nil)
	_ plugin.OnFeePaid           = (*Extension)(nil)
	_ plugin.OnFeeRolledOver     = (*Extension)(nil)
	_ plugin.OnFeesRepriced      = (*Extension)(nil)
	_ plugin.OnDriftRepaired     = (*Extension)(nil)
	_ plugin.OnStatusRefreshed   = (*Extension)(nil)
	_ plugin.OnSettingsUpdated   = (*Extension)(nil)
	_ plugin.OnExpenseRecorded   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import a
// concrete audit module — callers inject their backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Dues lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Member lifecycle hooks
// ──────────────────────────────────────────────────

// OnMemberCreated implements plugin.OnMemberCreated.
func (e *Extension) OnMemberCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionMemberCreated, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "member_created",
	)
}

// OnMemberReactivated implements plugin.OnMemberReactivated.
func (e *Extension) OnMemberReactivated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionMemberReactivated, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "member_reactivated",
	)
}

// ──────────────────────────────────────────────────
// Fee lifecycle hooks
// ──────────────────────────────────────────────────

// OnFeeCreated implements plugin.OnFeeCreated.
func (e *Extension) OnFeeCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionFeeCreated, SeverityInfo, OutcomeSuccess,
		ResourceFee, "", CategoryBilling, nil,
		"event", "fee_created",
	)
}

// OnFeePaid implements plugin.OnFeePaid.
func (e *Extension) OnFeePaid(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionFeePaid, SeverityInfo, OutcomeSuccess,
		ResourceFee, "", CategoryBilling, nil,
		"event", "fee_paid",
	)
}

// OnFeeRolledOver implements plugin.OnFeeRolledOver.
func (e *Extension) OnFeeRolledOver(ctx context.Context, _, _ interface{}) error {
	return e.record(ctx, ActionFeeRolledOver, SeverityInfo, OutcomeSuccess,
		ResourceFee, "", CategoryBilling, nil,
		"event", "fee_rolled_over",
	)
}

// OnFeesRepriced implements plugin.OnFeesRepriced.
func (e *Extension) OnFeesRepriced(ctx context.Context, gymID string, feesTouched, membersTouched int64) error {
	return e.record(ctx, ActionFeesRepriced, SeverityInfo, OutcomeSuccess,
		ResourceFee, gymID, CategoryBilling, nil,
		"gym_id", gymID,
		"fees_touched", feesTouched,
		"members_touched", membersTouched,
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftRepaired implements plugin.OnDriftRepaired.
func (e *Extension) OnDriftRepaired(ctx context.Context, memberID string, created, appended int) error {
	return e.record(ctx, ActionDriftRepaired, SeverityWarning, OutcomeSuccess,
		ResourceMember, memberID, CategoryReconciliation, nil,
		"member_id", memberID,
		"records_created", created,
		"entries_appended", appended,
	)
}

// OnStatusRefreshed implements plugin.OnStatusRefreshed.
func (e *Extension) OnStatusRefreshed(ctx context.Context, memberID string, from, to string) error {
	return e.record(ctx, ActionStatusRefreshed, SeverityInfo, OutcomeSuccess,
		ResourceMember, memberID, CategoryReconciliation, nil,
		"member_id", memberID,
		"from", from,
		"to", to,
	)
}

// ──────────────────────────────────────────────────
// Settings and expense hooks
// ──────────────────────────────────────────────────

// OnSettingsUpdated implements plugin.OnSettingsUpdated.
func (e *Extension) OnSettingsUpdated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSettingsUpdated, SeverityInfo, OutcomeSuccess,
		ResourceSettings, "", CategoryBilling, nil,
		"event", "settings_updated",
	)
}

// OnExpenseRecorded implements plugin.OnExpenseRecorded.
func (e *Extension) OnExpenseRecorded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionExpenseRecorded, SeverityInfo, OutcomeSuccess,
		ResourceExpense, "", CategoryFinance, nil,
		"event", "expense_recorded",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
