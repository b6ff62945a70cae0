package extension

import (
	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Option configures the Treasury Forge extension.
type Option func(*Extension)

// WithStore sets the store for the treasury engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTreasuryOption passes a treasury.Option through to the underlying engine.
func WithTreasuryOption(opt treasury.Option) Option {
	return func(e *Extension) {
		e.treasuryOpts = append(e.treasuryOpts, opt)
	}
}

// WithPlugin registers a treasury plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.treasuryOpts = append(e.treasuryOpts, treasury.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithReservedTokens marks token identifiers that may never be registered
// into a tenant's allow-list.
func WithReservedTokens(toks ...types.TokenID) Option {
	return func(e *Extension) {
		e.treasuryOpts = append(e.treasuryOpts, treasury.WithReservedTokens(toks...))
	}
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
