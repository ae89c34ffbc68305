package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/plugin"
	"github.com/xraph/feeledger/store"
	"github.com/xraph/feeledger/store/mongo"
	"github.com/xraph/feeledger/store/postgres"
	"github.com/xraph/feeledger/store/sqlite"
)

// Option configures the Feeledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the apportionment engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a feeledger.Option through to the underlying engine.
func WithEngineOption(opt feeledger.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a feeledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, feeledger.WithPlugin(p))
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

// WithPostgres backs the engine with a PostgreSQL store built on the
// provided grove database.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = postgres.New(db)
	}
}

// WithSQLite backs the engine with a SQLite store built on the provided
// grove database.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = sqlite.New(db)
	}
}

// WithMongo backs the engine with a MongoDB store built on the provided
// grove database.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongo.New(db)
	}
}
