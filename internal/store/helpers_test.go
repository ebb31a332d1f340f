package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/schema"
)

func testDefinition() schema.Definition {
	return schema.Definition{
		Name:    "test",
		Version: 1,
		Stores: []schema.StoreDef{
			{Name: "note", KeyPath: "id", Indexes: []schema.IndexDef{{Name: "tag"}}},
			{Name: "user", KeyPath: "email", Indexes: []schema.IndexDef{
				{Name: "age", Type: "integer"},
				{Name: "handle", Unique: true},
			}},
			{Name: "reading", Indexes: []schema.IndexDef{{Name: "celsius", Type: "float"}}},
		},
	}
}

func testCatalog(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(testDefinition(), schema.NewSequenceKeys("k"))
	require.NoError(t, err)
	return reg
}

// createTestStore opens a store on a fresh temp-dir database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), DriverCGO)
}

func openTestStore(t *testing.T, path, driver string) *Store {
	t.Helper()
	cfg := DefaultConfig(path)
	cfg.Driver = driver
	s, err := Open(context.Background(), testCatalog(t), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
