// Package extension provides the Forge extension adapter for Dues.
//
// It implements the forge.Extension interface to integrate Dues
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.dues" or "dues" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	dues "github.com/xraph/dues"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "dues"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Membership fee lifecycle engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Dues as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *dues.Engine
	store    store.Store
	duesOpts []dues.Option
}

// New creates a new Dues Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Dues instance.
// This is nil until Register is called.
func (e *Extension) Engine() *dues.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the dues engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build dues options from resolved config.
	opts := e.buildDuesOpts()

	eng := dues.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*dues.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("dues: extension not initialized")
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
		return errors.New("dues: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildDuesOpts constructs dues.Option values from the resolved config.
func (e *Extension) buildDuesOpts() []dues.Option {
	opts := make([]dues.Option, 0, len(e.duesOpts)+1)

	if e.config.DisableReprice {
		opts = append(opts, dues.WithRepriceOnSettings(false))
	}

	// Append any pass-through dues options.
	opts = append(opts, e.duesOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("dues: configuration is required but not found in config files; " +
				"ensure 'extensions.dues' or 'dues' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("dues: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("disable_reprice", e.config.DisableReprice),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.dues" first (namespaced pattern).
	if cm.IsSet("extensions.dues") {
		if err := cm.Bind("extensions.dues", &cfg); err == nil {
			e.Logger().Debug("dues: loaded config from file",
				forge.F("key", "extensions.dues"),
			)
			return cfg, true
		}
		e.Logger().Warn("dues: failed to bind extensions.dues config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "dues" key.
	if cm.IsSet("dues") {
		if err := cm.Bind("dues", &cfg); err == nil {
			e.Logger().Debug("dues: loaded config from file",
				forge.F("key", "dues"),
			)
			return cfg, true
		}
		e.Logger().Warn("dues: failed to bind dues config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableReprice {
		yamlConfig.DisableReprice = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
