package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTokenRegistered      []OnTokenRegistered
	onTokenUnregistered    []OnTokenUnregistered
	onBalanceCredited      []OnBalanceCredited
	onBalanceDebited       []OnBalanceDebited
	onDisbursementRecorded []OnDisbursementRecorded
	onLimitExceeded        []OnLimitExceeded
	onCapsUpdated          []OnCapsUpdated
	onRevenueSplit         []OnRevenueSplit
	reservedResolvers      []ReservedResolverPlugin
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
	if v, ok := p.(OnTokenRegistered); ok {
		r.onTokenRegistered = append(r.onTokenRegistered, v)
	}
	if v, ok := p.(OnTokenUnregistered); ok {
		r.onTokenUnregistered = append(r.onTokenUnregistered, v)
	}
	if v, ok := p.(OnBalanceCredited); ok {
		r.onBalanceCredited = append(r.onBalanceCredited, v)
	}
	if v, ok := p.(OnBalanceDebited); ok {
		r.onBalanceDebited = append(r.onBalanceDebited, v)
	}
	if v, ok := p.(OnDisbursementRecorded); ok {
		r.onDisbursementRecorded = append(r.onDisbursementRecorded, v)
	}
	if v, ok := p.(OnLimitExceeded); ok {
		r.onLimitExceeded = append(r.onLimitExceeded, v)
	}
	if v, ok := p.(OnCapsUpdated); ok {
		r.onCapsUpdated = append(r.onCapsUpdated, v)
	}
	if v, ok := p.(OnRevenueSplit); ok {
		r.onRevenueSplit = append(r.onRevenueSplit, v)
	}
	if v, ok := p.(ReservedResolverPlugin); ok {
		r.reservedResolvers = append(r.reservedResolvers, v)
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

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTokenRegistered)(nil)).Elem(), "OnTokenRegistered")
	checkInterface(reflect.TypeOf((*OnTokenUnregistered)(nil)).Elem(), "OnTokenUnregistered")
	checkInterface(reflect.TypeOf((*OnBalanceCredited)(nil)).Elem(), "OnBalanceCredited")
	checkInterface(reflect.TypeOf((*OnBalanceDebited)(nil)).Elem(), "OnBalanceDebited")
	checkInterface(reflect.TypeOf((*OnDisbursementRecorded)(nil)).Elem(), "OnDisbursementRecorded")
	checkInterface(reflect.TypeOf((*OnLimitExceeded)(nil)).Elem(), "OnLimitExceeded")
	checkInterface(reflect.TypeOf((*OnCapsUpdated)(nil)).Elem(), "OnCapsUpdated")
	checkInterface(reflect.TypeOf((*OnRevenueSplit)(nil)).Elem(), "OnRevenueSplit")
	checkInterface(reflect.TypeOf((*ReservedResolverPlugin)(nil)).Elem(), "ReservedResolver")

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
func (r *Registry) EmitInit(ctx context.Context, treasury interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, treasury)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
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
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenRegistered emits a token registered event.
func (r *Registry) EmitTokenRegistered(ctx context.Context, tok types.TokenID) {
	r.mu.RLock()
	plugins := r.onTokenRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenRegistered(ctx, tok)
		}); err != nil {
			r.logger.Warn("plugin OnTokenRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenUnregistered emits a token unregistered event.
func (r *Registry) EmitTokenUnregistered(ctx context.Context, tok types.TokenID) {
	r.mu.RLock()
	plugins := r.onTokenUnregistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenUnregistered(ctx, tok)
		}); err != nil {
			r.logger.Warn("plugin OnTokenUnregistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBalanceCredited emits a balance credited event.
func (r *Registry) EmitBalanceCredited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) {
	r.mu.RLock()
	plugins := r.onBalanceCredited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalanceCredited(ctx, tenant, tok, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnBalanceCredited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBalanceDebited emits a balance debited event.
func (r *Registry) EmitBalanceDebited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) {
	r.mu.RLock()
	plugins := r.onBalanceDebited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalanceDebited(ctx, tenant, tok, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnBalanceDebited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDisbursementRecorded emits a disbursement recorded event.
func (r *Registry) EmitDisbursementRecorded(ctx context.Context, key types.DisbursementKey, quantity types.Amount) {
	r.mu.RLock()
	plugins := r.onDisbursementRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDisbursementRecorded(ctx, key, quantity)
		}); err != nil {
			r.logger.Warn("plugin OnDisbursementRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLimitExceeded emits a limit exceeded event.
func (r *Registry) EmitLimitExceeded(ctx context.Context, key types.DisbursementKey, quantity types.Amount, cause error) {
	r.mu.RLock()
	plugins := r.onLimitExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLimitExceeded(ctx, key, quantity, cause)
		}); err != nil {
			r.logger.Warn("plugin OnLimitExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCapsUpdated emits a caps updated event.
func (r *Registry) EmitCapsUpdated(ctx context.Context, tenant types.TenantID, tok types.TokenID, caps ratelimit.Caps) {
	r.mu.RLock()
	plugins := r.onCapsUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapsUpdated(ctx, tenant, tok, caps)
		}); err != nil {
			r.logger.Warn("plugin OnCapsUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevenueSplit emits a revenue split event.
func (r *Registry) EmitRevenueSplit(ctx context.Context, tenant types.TenantID, tok types.TokenID, gross, tenantShare, operatorShare types.Amount) {
	r.mu.RLock()
	plugins := r.onRevenueSplit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevenueSplit(ctx, tenant, tok, gross, tenantShare, operatorShare)
		}); err != nil {
			r.logger.Warn("plugin OnRevenueSplit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetReservedResolvers returns all registered reserved resolver plugins.
func (r *Registry) GetReservedResolvers() []ReservedResolverPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ReservedResolverPlugin, len(r.reservedResolvers))
	copy(result, r.reservedResolvers)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block a treasury call.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
