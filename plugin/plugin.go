// Package plugin provides an extensible plugin system for the treasury.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/types"
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
	OnInit(ctx context.Context, t interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Token registry hooks
// ──────────────────────────────────────────────────

// OnTokenRegistered is called when a token is added to the allow-list.
type OnTokenRegistered interface {
	Plugin
	OnTokenRegistered(ctx context.Context, tok types.TokenID) error
}

// OnTokenUnregistered is called when a token is removed from the allow-list.
type OnTokenUnregistered interface {
	Plugin
	OnTokenUnregistered(ctx context.Context, tok types.TokenID) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceCredited is called after a tenant or operator balance increases.
type OnBalanceCredited interface {
	Plugin
	OnBalanceCredited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) error
}

// OnBalanceDebited is called after a tenant or operator balance decreases.
type OnBalanceDebited interface {
	Plugin
	OnBalanceDebited(ctx context.Context, tenant types.TenantID, tok types.TokenID, amount, balance types.Amount) error
}

// ──────────────────────────────────────────────────
// Disbursement hooks
// ──────────────────────────────────────────────────

// OnDisbursementRecorded is called after a disbursement clears the rate
// limiter and is debited.
type OnDisbursementRecorded interface {
	Plugin
	OnDisbursementRecorded(ctx context.Context, key types.DisbursementKey, quantity types.Amount) error
}

// OnLimitExceeded is called when a disbursement is rejected by a cap.
type OnLimitExceeded interface {
	Plugin
	OnLimitExceeded(ctx context.Context, key types.DisbursementKey, quantity types.Amount, err error) error
}

// OnCapsUpdated is called when per-transaction or daily caps change.
type OnCapsUpdated interface {
	Plugin
	OnCapsUpdated(ctx context.Context, tenant types.TenantID, tok types.TokenID, caps ratelimit.Caps) error
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueSplit is called after a purchase is split between a tenant and
// the operator pool.
type OnRevenueSplit interface {
	Plugin
	OnRevenueSplit(ctx context.Context, tenant types.TenantID, tok types.TokenID, gross, tenantShare, operatorShare types.Amount) error
}

// ──────────────────────────────────────────────────
// Reserved token resolvers
// ──────────────────────────────────────────────────

// ReservedResolverPlugin provides the set of token identifiers that can
// never be registered or unregistered.
type ReservedResolverPlugin interface {
	Plugin
	Resolver() interface{} // Returns token.ReservedResolver
}
