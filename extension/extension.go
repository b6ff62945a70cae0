// Package extension provides the Forge extension adapter for Treasury.
//
// It implements the forge.Extension interface to integrate Treasury
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.treasury" or "treasury" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/vessel"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/store/memory"
	mongostore "github.com/xraph/treasury/store/mongo"
	"github.com/xraph/treasury/store/postgres"
	"github.com/xraph/treasury/store/sqlite"
	"github.com/xraph/treasury/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "treasury"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant custodial treasury with disbursement rate limiting"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Treasury as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	engine       *treasury.Treasury
	store        store.Store
	treasuryOpts []treasury.Option
	useGrove     bool
}

// New creates a new Treasury Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Treasury instance.
// This is nil until Register is called.
func (e *Extension) Engine() *treasury.Treasury { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the treasury engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Resolve a grove-backed store when requested via config or option.
	if e.store == nil && (e.useGrove || e.config.GroveDatabase != "") {
		s, err := e.resolveGroveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build treasury options from resolved config.
	opts := e.buildTreasuryOpts()

	eng := treasury.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*treasury.Treasury, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("treasury: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("treasury: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildTreasuryOpts constructs treasury.Option values from the resolved config.
func (e *Extension) buildTreasuryOpts() []treasury.Option {
	opts := make([]treasury.Option, 0, len(e.treasuryOpts)+1)

	if len(e.config.ReservedTokens) > 0 {
		toks := make([]types.TokenID, 0, len(e.config.ReservedTokens))
		for _, t := range e.config.ReservedTokens {
			toks = append(toks, types.TokenID(t))
		}
		opts = append(opts, treasury.WithReservedTokens(toks...))
	}

	// Append any pass-through treasury options.
	opts = append(opts, e.treasuryOpts...)

	return opts
}

// resolveGroveStore resolves a grove.DB from the DI container and constructs
// the store backend matching its driver.
func (e *Extension) resolveGroveStore(fapp forge.App) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("treasury: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}

	switch {
	case pgdriver.Unwrap(db) != nil:
		return postgres.New(db), nil
	case sqlitedriver.Unwrap(db) != nil:
		return sqlite.New(db), nil
	case mongodriver.Unwrap(db) != nil:
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("treasury: unsupported grove driver for database %q", e.config.GroveDatabase)
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("treasury: configuration is required but not found in config files; " +
				"ensure 'extensions.treasury' or 'treasury' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("treasury: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("reserved_tokens", len(e.config.ReservedTokens)),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.treasury" first (namespaced pattern).
	if cm.IsSet("extensions.treasury") {
		if err := cm.Bind("extensions.treasury", &cfg); err == nil {
			e.Logger().Debug("treasury: loaded config from file",
				forge.F("key", "extensions.treasury"),
			)
			return cfg, true
		}
		e.Logger().Warn("treasury: failed to bind extensions.treasury config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "treasury" key.
	if cm.IsSet("treasury") {
		if err := cm.Bind("treasury", &cfg); err == nil {
			e.Logger().Debug("treasury: loaded config from file",
				forge.F("key", "treasury"),
			)
			return cfg, true
		}
		e.Logger().Warn("treasury: failed to bind treasury config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.ReservedTokens == nil {
		cfg.ReservedTokens = defaults.ReservedTokens
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Slice fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.ReservedTokens) == 0 && len(programmaticConfig.ReservedTokens) != 0 {
		yamlConfig.ReservedTokens = programmaticConfig.ReservedTokens
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
