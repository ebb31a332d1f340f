package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/docsql/internal/migrate"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/txn"
)

// Store maps the records of a schema catalog onto one SQLite database.
//
// Thread-safety: Store is safe for concurrent use. Transactions are
// serialized by the single pooled connection.
type Store struct {
	db     *sql.DB
	gw     *txn.Gateway
	cat    schema.Catalog
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens the database at cfg.Path for cat. When cat's version differs
// from the database's recorded version, table creation runs first. If any
// CREATE statement fails, Open fails: the other tables are still created,
// but the version stays unrecorded so the next Open retries.
func Open(ctx context.Context, cat schema.Catalog, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; one connection also keeps ":memory:"
	// databases alive for the life of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:     db,
		gw:     txn.NewGateway(db, logger),
		cat:    cat,
		logger: logger,
	}
	migrated, err := migrate.EnsureCurrent(ctx, s.gw, cat)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"catalog", cat.Name(),
		"version", cat.Version(),
		"migrated", migrated,
	)
	return s, nil
}

// OpenFile loads the schema file at schemaPath and opens the database for it.
func OpenFile(ctx context.Context, schemaPath string, cfg Config) (*Store, error) {
	cat, err := schema.Load(schemaPath, cfg.KeyGenerator)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cat, cfg)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB, cfg Config) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database. It is safe to call more than once and on a nil
// Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("store closed", "catalog", s.cat.Name())
	return s.db.Close()
}

// Catalog returns the schema catalog the store was opened with.
func (s *Store) Catalog() schema.Catalog {
	return s.cat
}

// Gateway exposes the transaction gateway for callers that want Futures
// instead of blocking calls.
func (s *Store) Gateway() *txn.Gateway {
	return s.gw
}

// Migrate re-runs table creation and records the catalog version. Existing
// tables are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate.Migrate(ctx, s.gw, s.cat)
}

// Version returns the database's recorded schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	return migrate.RecordedVersion(ctx, s.gw)
}
