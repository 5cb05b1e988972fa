package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onMemberCreated     []OnMemberCreated
	onMemberReactivated []OnMemberReactivated
	onFeeCreated        []OnFeeCreated
	onFeePaid           []OnFeePaid
	onFeeRolledOver     []OnFeeRolledOver
	onFeesRepriced      []OnFeesRepriced
	onDriftRepaired     []OnDriftRepaired
	onStatusRefreshed   []OnStatusRefreshed
	onSettingsUpdated   []OnSettingsUpdated
	onExpenseRecorded   []OnExpenseRecorded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnMemberCreated); ok {
		r.onMemberCreated = append(r.onMemberCreated, v)
	}
	if v, ok := p.(OnMemberReactivated); ok {
		r.onMemberReactivated = append(r.onMemberReactivated, v)
	}
	if v, ok := p.(OnFeeCreated); ok {
		r.onFeeCreated = append(r.onFeeCreated, v)
	}
	if v, ok := p.(OnFeePaid); ok {
		r.onFeePaid = append(r.onFeePaid, v)
	}
	if v, ok := p.(OnFeeRolledOver); ok {
		r.onFeeRolledOver = append(r.onFeeRolledOver, v)
	}
	if v, ok := p.(OnFeesRepriced); ok {
		r.onFeesRepriced = append(r.onFeesRepriced, v)
	}
	if v, ok := p.(OnDriftRepaired); ok {
		r.onDriftRepaired = append(r.onDriftRepaired, v)
	}
	if v, ok := p.(OnStatusRefreshed); ok {
		r.onStatusRefreshed = append(r.onStatusRefreshed, v)
	}
	if v, ok := p.(OnSettingsUpdated); ok {
		r.onSettingsUpdated = append(r.onSettingsUpdated, v)
	}
	if v, ok := p.(OnExpenseRecorded); ok {
		r.onExpenseRecorded = append(r.onExpenseRecorded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnMemberCreated)(nil)).Elem(), "OnMemberCreated")
	checkInterface(reflect.TypeOf((*OnMemberReactivated)(nil)).Elem(), "OnMemberReactivated")
	checkInterface(reflect.TypeOf((*OnFeeCreated)(nil)).Elem(), "OnFeeCreated")
	checkInterface(reflect.TypeOf((*OnFeePaid)(nil)).Elem(), "OnFeePaid")
	checkInterface(reflect.TypeOf((*OnFeeRolledOver)(nil)).Elem(), "OnFeeRolledOver")
	checkInterface(reflect.TypeOf((*OnFeesRepriced)(nil)).Elem(), "OnFeesRepriced")
	checkInterface(reflect.TypeOf((*OnDriftRepaired)(nil)).Elem(), "OnDriftRepaired")
	checkInterface(reflect.TypeOf((*OnStatusRefreshed)(nil)).Elem(), "OnStatusRefreshed")
	checkInterface(reflect.TypeOf((*OnSettingsUpdated)(nil)).Elem(), "OnSettingsUpdated")
	checkInterface(reflect.TypeOf((*OnExpenseRecorded)(nil)).Elem(), "OnExpenseRecorded")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitMemberCreated emits a member created event.
func (r *Registry) EmitMemberCreated(ctx context.Context, m interface{}) {
	r.mu.RLock()
	plugins := r.onMemberCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMemberCreated(ctx, m)
		}); err != nil {
			r.logger.Warn("plugin OnMemberCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitMemberReactivated emits a member reactivated event.
func (r *Registry) EmitMemberReactivated(ctx context.Context, m interface{}) {
	r.mu.RLock()
	plugins := r.onMemberReactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMemberReactivated(ctx, m)
		}); err != nil {
			r.logger.Warn("plugin OnMemberReactivated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFeeCreated emits a fee created event.
func (r *Registry) EmitFeeCreated(ctx context.Context, f interface{}) {
	r.mu.RLock()
	plugins := r.onFeeCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeCreated(ctx, f)
		}); err != nil {
			r.logger.Warn("plugin OnFeeCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFeePaid emits a fee paid event.
func (r *Registry) EmitFeePaid(ctx context.Context, f interface{}) {
	r.mu.RLock()
	plugins := r.onFeePaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeePaid(ctx, f)
		}); err != nil {
			r.logger.Warn("plugin OnFeePaid failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFeeRolledOver emits a fee rollover event.
func (r *Registry) EmitFeeRolledOver(ctx context.Context, paid, next interface{}) {
	r.mu.RLock()
	plugins := r.onFeeRolledOver
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeRolledOver(ctx, paid, next)
		}); err != nil {
			r.logger.Warn("plugin OnFeeRolledOver failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFeesRepriced emits a bulk repricing event.
func (r *Registry) EmitFeesRepriced(ctx context.Context, gymID string, feesTouched, membersTouched int64) {
	r.mu.RLock()
	plugins := r.onFeesRepriced
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeesRepriced(ctx, gymID, feesTouched, membersTouched)
		}); err != nil {
			r.logger.Warn("plugin OnFeesRepriced failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitDriftRepaired emits a drift repaired event.
func (r *Registry) EmitDriftRepaired(ctx context.Context, memberID string, created, appended int) {
	r.mu.RLock()
	plugins := r.onDriftRepaired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDriftRepaired(ctx, memberID, created, appended)
		}); err != nil {
			r.logger.Warn("plugin OnDriftRepaired failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitStatusRefreshed emits a status refreshed event.
func (r *Registry) EmitStatusRefreshed(ctx context.Context, memberID, from, to string) {
	r.mu.RLock()
	plugins := r.onStatusRefreshed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStatusRefreshed(ctx, memberID, from, to)
		}); err != nil {
			r.logger.Warn("plugin OnStatusRefreshed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitSettingsUpdated emits a settings updated event.
func (r *Registry) EmitSettingsUpdated(ctx context.Context, s interface{}) {
	r.mu.RLock()
	plugins := r.onSettingsUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettingsUpdated(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnSettingsUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitExpenseRecorded emits an expense recorded event.
func (r *Registry) EmitExpenseRecorded(ctx context.Context, e interface{}) {
	r.mu.RLock()
	plugins := r.onExpenseRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnExpenseRecorded(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnExpenseRecorded failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the fee pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(callTimeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
