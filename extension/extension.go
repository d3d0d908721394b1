// Package extension provides the Forge extension adapter for the stock ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.stockledger" or
// "stockledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/store/memory"
	"github.com/xraph/stockledger/store/mongo"
	"github.com/xraph/stockledger/store/postgres"
	"github.com/xraph/stockledger/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "stockledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Inventory stock ledger with an append-only transaction log"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the stock ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *stockledger.Ledger
	store      store.Store
	ledgerOpts []stockledger.Option
	useGrove   bool
}

// New creates a new stock ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *stockledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// opens the store, initializes the engine, and registers it in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		var (
			s   store.Store
			err error
		)
		if e.useGrove || e.config.GroveDatabase != "" {
			s, err = e.resolveGroveStore(fapp.Container())
		} else {
			s, err = openStore(context.Background(), e.config)
		}
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = stockledger.New(e.store, e.buildLedgerOpts()...)

	return vessel.Provide(fapp.Container(), func() (*stockledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("stockledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
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
		return errors.New("stockledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs stockledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []stockledger.Option {
	opts := make([]stockledger.Option, 0, len(e.ledgerOpts)+2)

	if e.config.ReorderScanInterval > 0 {
		opts = append(opts, stockledger.WithReorderScanInterval(e.config.ReorderScanInterval))
	}
	if e.config.DisableMigrate {
		opts = append(opts, stockledger.WithoutMigrate())
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// openStore builds the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case DriverMongo:
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("stockledger: unknown store driver %q", cfg.Driver)
	}
}

// resolveGroveStore resolves the configured grove.DB from the DI container
// and wraps it in the matching store backend.
func (e *Extension) resolveGroveStore(c forge.Container) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](c, e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](c)
	}
	if err != nil {
		return nil, fmt.Errorf("stockledger: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}
	return storeFromGrove(db)
}

// storeFromGrove picks the store backend from the grove driver name.
func storeFromGrove(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("stockledger: unsupported grove driver %q", name)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("stockledger: configuration is required but not found in config files; " +
				"ensure 'extensions.stockledger' or 'stockledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("stockledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("database", e.config.Database),
		forge.F("grove_database", e.config.GroveDatabase),
		forge.F("reorder_scan_interval", e.config.ReorderScanInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.stockledger", "stockledger"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("stockledger: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("stockledger: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" && programmaticConfig.Driver != "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DSN == "" && programmaticConfig.DSN != "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.Database == "" && programmaticConfig.Database != "" {
		yamlConfig.Database = programmaticConfig.Database
	}
	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ReorderScanInterval == 0 && programmaticConfig.ReorderScanInterval != 0 {
		yamlConfig.ReorderScanInterval = programmaticConfig.ReorderScanInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
