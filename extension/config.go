package extension

// Config holds the Treasury extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.treasury" or "treasury" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ReservedTokens lists token identifiers that may never be registered
	// into a tenant's allow-list (e.g. the operator's own settlement assets).
	ReservedTokens []string `json:"reserved_tokens" mapstructure:"reserved_tokens" yaml:"reserved_tokens"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
