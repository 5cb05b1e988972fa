// Package observability provides a metrics extension for Dues that records
// lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/dues/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnMemberCreated     = (*MetricsExtension)(nil)
	_ plugin.OnMemberReactivated = (*MetricsExtension)(nil)
	_ plugin.OnFeeCreated        = (*MetricsExtension)(nil)
	_ plugin.OnFeePaid           = (*MetricsExtension)(nil)
	_ plugin.OnFeeRolledOver     = (*MetricsExtension)(nil)
	_ plugin.OnFeesRepriced      = (*MetricsExtension)(nil)
	_ plugin.OnDriftRepaired     = (*MetricsExtension)(nil)
	_ plugin.OnStatusRefreshed   = (*MetricsExtension)(nil)
	_ plugin.OnSettingsUpdated   = (*MetricsExtension)(nil)
	_ plugin.OnExpenseRecorded   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Dues plugin to automatically track membership metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Member metrics
	MemberCreated     Counter
	MemberReactivated Counter

	// Fee metrics
	FeeCreated    Counter
	FeePaid       Counter
	FeeRolledOver Counter
	FeesRepriced  Counter
	RepriceScope  Histogram

	// Reconciliation metrics
	DriftRepaired    Counter
	DriftRecords     Histogram
	StatusRefreshed Counter

	// Settings and expense metrics
	SettingsUpdated Counter
	ExpenseRecorded Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Member metrics
		MemberCreated:     factory.Counter("dues.member.created"),
		MemberReactivated: factory.Counter("dues.member.reactivated"),

		// Fee metrics
		FeeCreated:    factory.Counter("dues.fee.created"),
		FeePaid:       factory.Counter("dues.fee.paid"),
		FeeRolledOver: factory.Counter("dues.fee.rolled_over"),
		FeesRepriced:  factory.Counter("dues.fees.repriced"),
		RepriceScope:  factory.Histogram("dues.fees.reprice.scope"),

		// Reconciliation metrics
		DriftRepaired:   factory.Counter("dues.drift.repaired"),
		DriftRecords:    factory.Histogram("dues.drift.records"),
		StatusRefreshed: factory.Counter("dues.status.refreshed"),

		// Settings and expense metrics
		SettingsUpdated: factory.Counter("dues.settings.updated"),
		ExpenseRecorded: factory.Counter("dues.expense.recorded"),

		// Error metrics
		StoreErrors:  factory.Counter("dues.store.errors"),
		PluginErrors: factory.Counter("dues.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Member lifecycle hooks
// ──────────────────────────────────────────────────

// OnMemberCreated implements plugin.OnMemberCreated.
func (m *MetricsExtension) OnMemberCreated(_ context.Context, _ interface{}) error {
	m.MemberCreated.Inc()
	return nil
}

// OnMemberReactivated implements plugin.OnMemberReactivated.
func (m *MetricsExtension) OnMemberReactivated(_ context.Context, _ interface{}) error {
	m.MemberReactivated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Fee lifecycle hooks
// ──────────────────────────────────────────────────

// OnFeeCreated implements plugin.OnFeeCreated.
func (m *MetricsExtension) OnFeeCreated(_ context.Context, _ interface{}) error {
	m.FeeCreated.Inc()
	return nil
}

// OnFeePaid implements plugin.OnFeePaid.
func (m *MetricsExtension) OnFeePaid(_ context.Context, _ interface{}) error {
	m.FeePaid.Inc()
	return nil
}

// OnFeeRolledOver implements plugin.OnFeeRolledOver.
func (m *MetricsExtension) OnFeeRolledOver(_ context.Context, _, _ interface{}) error {
	m.FeeRolledOver.Inc()
	return nil
}

// OnFeesRepriced implements plugin.OnFeesRepriced.
func (m *MetricsExtension) OnFeesRepriced(_ context.Context, _ string, feesTouched, membersTouched int64) error {
	m.FeesRepriced.Inc()
	m.RepriceScope.Observe(float64(feesTouched + membersTouched))
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftRepaired implements plugin.OnDriftRepaired.
func (m *MetricsExtension) OnDriftRepaired(_ context.Context, _ string, created, appended int) error {
	m.DriftRepaired.Inc()
	m.DriftRecords.Observe(float64(created + appended))
	return nil
}

// OnStatusRefreshed implements plugin.OnStatusRefreshed.
func (m *MetricsExtension) OnStatusRefreshed(_ context.Context, _ string, _, _ string) error {
	m.StatusRefreshed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settings and expense hooks
// ──────────────────────────────────────────────────

// OnSettingsUpdated implements plugin.OnSettingsUpdated.
func (m *MetricsExtension) OnSettingsUpdated(_ context.Context, _ interface{}) error {
	m.SettingsUpdated.Inc()
	return nil
}

// OnExpenseRecorded implements plugin.OnExpenseRecorded.
func (m *MetricsExtension) OnExpenseRecorded(_ context.Context, _ interface{}) error {
	m.ExpenseRecorded.Inc()
	return nil
}
