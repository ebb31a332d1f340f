package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/schema"
)

// OpenDB opens a single-connection SQLite database in a temporary directory.
// The database is closed when the test ends.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that drops every record.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Keys returns a sequence generator yielding "k1", "k2", ... and 1, 2, ...
func Keys() *schema.SequenceKeys {
	return schema.NewSequenceKeys("k")
}

// Catalog builds a registry from stores using Keys. The catalog is named
// "test" at version 1.
func Catalog(t testing.TB, stores ...schema.StoreDef) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(schema.Definition{Name: "test", Version: 1, Stores: stores}, Keys())
	require.NoError(t, err)
	return reg
}
