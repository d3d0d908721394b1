package extension

import (
	"time"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/store"
)

// Option configures the stock ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine. It takes precedence over
// Config.Driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a stockledger.Option through to the underlying engine.
func WithLedgerOption(opt stockledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, stockledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate skips store migrations on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDriver selects the store backend and its connection string.
func WithDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.Driver = driver
		e.config.DSN = dsn
	}
}

// WithReorderScanInterval enables the background low-stock scan.
func WithReorderScanInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ReorderScanInterval = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase resolves the store from a grove.DB registered in the DI
// container. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
