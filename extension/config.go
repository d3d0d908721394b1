package extension

import "time"

// Store drivers understood by Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the stock ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.stockledger" or "stockledger" keys).
type Config struct {
	// DisableMigrate skips store migrations on start. Plugins and the reorder
	// scan still start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend when none was set with WithStore
	// (default: "memory").
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the connection string for the postgres and mongo drivers, or the
	// database file path for sqlite.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the MongoDB database name (default: "stockledger").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves it and builds the store matching its
	// driver (pg, sqlite or mongo) instead of opening one from Driver/DSN.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// ReorderScanInterval enables the background low-stock scan. Zero
	// disables it.
	ReorderScanInterval time.Duration `json:"reorder_scan_interval" mapstructure:"reorder_scan_interval" yaml:"reorder_scan_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:   DriverMemory,
		Database: "stockledger",
	}
}
