package extension

import (
	dues "github.com/xraph/dues"
	"github.com/xraph/dues/plugin"
	"github.com/xraph/dues/store"
)

// Option configures the Dues Forge extension.
type Option func(*Extension)

// WithStore sets the store for the dues engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithDuesOption passes a dues.Option through to the underlying engine.
func WithDuesOption(opt dues.Option) Option {
	return func(e *Extension) {
		e.duesOpts = append(e.duesOpts, opt)
	}
}

// WithPlugin registers a dues plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.duesOpts = append(e.duesOpts, dues.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for dues routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithDisableReprice prevents settings changes from repricing open fees.
func WithDisableReprice() Option {
	return func(e *Extension) { e.config.DisableReprice = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
