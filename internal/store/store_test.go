package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

// noteScenario is the basic put/get/count/delete walk over a key path store.
func noteScenario(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	key, err := s.PutOne(ctx, "note", codec.Record{"id": "a", "tag": "x", "body": "hi"})
	require.NoError(t, err)
	assert.Equal(t, value.Text("a"), key)

	rec, found, err := s.Get(ctx, "note", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, codec.Record{"id": "a", "tag": "x", "body": "hi"}, rec)

	generated, err := s.PutOne(ctx, "note", codec.Record{"tag": "y"})
	require.NoError(t, err)
	require.NotNil(t, generated)
	assert.NotEqual(t, "", value.KeyString(generated))
	assert.NotEqual(t, "a", value.KeyString(generated))

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "note", "a"))
	rec, found, err = s.Get(ctx, "note", "a")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestNoteScenario(t *testing.T) {
	noteScenario(t, createTestStore(t))
}

func TestNoteScenario_PureGoDriver(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "pure.db"), DriverPure)
	noteScenario(t, s)
}

func TestOpen_MigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(ctx, testCatalog(t), DefaultConfig(path))
	require.NoError(t, err)
	_, err = s.PutOne(ctx, "note", codec.Record{"id": "a"})
	require.NoError(t, err)
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, s.Close())

	s, err = Open(ctx, testCatalog(t), DefaultConfig(path))
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), testCatalog(t), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Open(context.Background(), testCatalog(t), Config{Path: "x.db", Driver: "postgres"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_MigrationFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	reg, err := schema.NewRegistry(schema.Definition{
		Name:    "test",
		Version: 1,
		Stores: []schema.StoreDef{
			{Name: "note", KeyPath: "id"},
			{Name: "sqlite_reserved"}, // SQLite refuses this table name
		},
	}, nil)
	require.NoError(t, err)

	_, err = Open(ctx, reg, DefaultConfig(path))
	require.Error(t, err)
	assert.ErrorIs(t, err, txn.ErrBackend)

	// The statements that succeeded were committed; the version was not
	// recorded, so a corrected catalog migrates on the next open.
	s, err := Open(ctx, testCatalog(t), DefaultConfig(path))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.PutOne(ctx, "note", codec.Record{"id": "a"})
	require.NoError(t, err)
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`name: notes
version: 1
stores:
  - name: note
    key_path: id
    indexes:
      - name: tag
`), 0o644))

	cfg := DefaultConfig(filepath.Join(dir, "test.db"))
	cfg.KeyGenerator = schema.NewSequenceKeys("n")
	s, err := OpenFile(context.Background(), schemaPath, cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "notes", s.Catalog().Name())
	key, err := s.PutOne(context.Background(), "note", codec.Record{"tag": "x"})
	require.NoError(t, err)
	assert.Equal(t, value.Text("n1"), key)
}

func TestOpenFile_BadSchema(t *testing.T) {
	_, err := OpenFile(context.Background(), filepath.Join(t.TempDir(), "schema.json"), DefaultConfig(":memory:"))
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestOpen_Memory(t *testing.T) {
	s := openTestStore(t, ":memory:", DriverCGO)
	_, err := s.PutOne(context.Background(), "note", codec.Record{"id": "a"})
	require.NoError(t, err)

	n, err := s.Count(context.Background(), "note")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClose(t *testing.T) {
	var nilStore *Store
	assert.NoError(t, nilStore.Close())

	s := createTestStore(t)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	_, err := s.Count(context.Background(), "note")
	assert.ErrorIs(t, err, txn.ErrBackend)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Path: "x.db"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, DriverCGO, cfg.Driver)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)

	cfg = Config{Path: "x.db", Driver: DriverPure, BusyTimeout: time.Second}
	require.NoError(t, cfg.validate())
	assert.Equal(t, DriverPure, cfg.Driver)
	assert.Equal(t, time.Second, cfg.BusyTimeout)

	cfg = Config{Path: "x.db", BusyTimeout: -time.Second}
	assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)
}
