package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"github.com/roach88/docsql/internal/schema"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver.
	DriverCGO = "sqlite3"

	// DriverPure is the modernc.org/sqlite driver (no cgo).
	DriverPure = "sqlite"
)

// ErrInvalidConfig is returned by Open for unusable configurations.
var ErrInvalidConfig = errors.New("docsql: invalid store config")

// Config holds configuration for the Store.
type Config struct {
	// Path is the database file. ":memory:" works since the pool holds a
	// single connection.
	Path string

	// Driver is DriverCGO or DriverPure.
	// Default: DriverCGO
	Driver string

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration

	// Logger receives backend errors and lifecycle events.
	// Default: discard
	Logger *slog.Logger

	// KeyGenerator generates primary keys for catalogs loaded by OpenFile.
	// Default: schema.NewUUIDKeys()
	KeyGenerator schema.KeyGenerator
}

// DefaultConfig returns the configuration used by the CLI for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Driver:      DriverCGO,
		BusyTimeout: 5 * time.Second,
	}
}

// validate fills defaults and rejects values Open cannot use.
func (c *Config) validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.Driver == "" {
		c.Driver = DriverCGO
	}
	if c.Driver != DriverCGO && c.Driver != DriverPure {
		return fmt.Errorf("%w: unknown driver %q (want %q or %q)", ErrInvalidConfig, c.Driver, DriverCGO, DriverPure)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: negative busy timeout %s", ErrInvalidConfig, c.BusyTimeout)
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
	return nil
}
