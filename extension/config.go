package extension

// Config holds the Dues extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.dues" or "dues" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for dues routes (default: "/dues").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// DisableReprice prevents open fees from being repriced when a user's
	// fee settings change. By default a settings change propagates to every
	// non-paid fee of the owner's gyms.
	DisableReprice bool `json:"disable_reprice" mapstructure:"disable_reprice" yaml:"disable_reprice"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/dues",
	}
}
