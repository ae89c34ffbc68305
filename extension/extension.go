// Package extension provides the Forge extension adapter for Feeledger.
//
// It implements the forge.Extension interface to integrate Feeledger
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.feeledger" or
// "feeledger" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/store"
	"github.com/xraph/feeledger/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "feeledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fee apportionment and reconciliation ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Feeledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *feeledger.Engine
	store      store.Store
	engineOpts []feeledger.Option
}

// New creates a new Feeledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Feeledger engine.
// This is nil until Register is called.
func (e *Extension) Engine() *feeledger.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the apportionment engine, and registers it in the DI container.
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

	eng := feeledger.New(e.store, e.engineOpts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*feeledger.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("feeledger: extension not initialized")
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
		return errors.New("feeledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("feeledger: configuration is required but not found in config files; " +
				"ensure 'extensions.feeledger' or 'feeledger' key exists in your config")
		}

		e.config = programmaticConfig
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("feeledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.feeledger" first (namespaced pattern).
	if cm.IsSet("extensions.feeledger") {
		if err := cm.Bind("extensions.feeledger", &cfg); err == nil {
			e.Logger().Debug("feeledger: loaded config from file",
				forge.F("key", "extensions.feeledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("feeledger: failed to bind extensions.feeledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "feeledger" key.
	if cm.IsSet("feeledger") {
		if err := cm.Bind("feeledger", &cfg); err == nil {
			e.Logger().Debug("feeledger: loaded config from file",
				forge.F("key", "feeledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("feeledger: failed to bind feeledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	return yamlConfig
}
