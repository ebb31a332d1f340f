package schema

import (
	"fmt"

	"github.com/roach88/docsql/internal/value"
)

const (
	// KeyColumn is the surrogate primary key column of stores without a key path.
	KeyColumn = "_key"

	// PayloadColumn holds the serialized record.
	PayloadColumn = "_value"
)

// Catalog is the schema collaborator consumed by the codec, migrator and
// query executor.
type Catalog interface {
	// Name identifies the database the catalog describes.
	Name() string

	// Version is compared with the database's recorded version to decide
	// whether table creation runs at open.
	Version() int

	// Stores enumerates every declared store in declaration order.
	Stores() []*Store

	// Lookup resolves a store by name. Unknown names wrap ErrUnknownStore.
	Lookup(name string) (*Store, error)

	// Quote renders an identifier for use in SQL text.
	Quote(ident string) string

	// NewKey generates a primary key for a record that has none.
	NewKey(s *Store) value.Value

	// Extract returns the index column/value pairs of rec for s. Fields that
	// are absent from rec are omitted.
	Extract(s *Store, rec map[string]any) ([]Field, error)
}

// Field is one column/value pair extracted from a record.
type Field struct {
	Column string
	Value  value.Value
}

// Index is a scalar projection of a record field into its own column.
type Index struct {
	Name     string
	Affinity value.Affinity
	Unique   bool
}

// Store is a named table of records of one kind.
type Store struct {
	Name string

	// KeyPath names the record field used as primary key. Empty means the
	// store uses a surrogate integer key in KeyColumn.
	KeyPath string

	// Indexes are the user-declared indexes, excluding the payload column.
	Indexes []Index
}

// HasKeyPath reports whether the store declares a key path.
func (s *Store) HasKeyPath() bool {
	return s.KeyPath != ""
}

// KeyColumn returns the primary key column name.
func (s *Store) KeyColumn() string {
	if s.HasKeyPath() {
		return s.KeyPath
	}
	return KeyColumn
}

// KeyAffinity is text for key path stores and integer for surrogate stores.
func (s *Store) KeyAffinity() value.Affinity {
	if s.HasKeyPath() {
		return value.AffinityText
	}
	return value.AffinityInteger
}

// Columns returns every non-key column of the table: declared indexes
// (minus any index shadowing the key path) followed by the payload column.
func (s *Store) Columns() []Index {
	cols := make([]Index, 0, len(s.Indexes)+1)
	for _, idx := range s.Indexes {
		if idx.Name == s.KeyPath {
			continue
		}
		cols = append(cols, idx)
	}
	return append(cols, Index{Name: PayloadColumn, Affinity: value.AffinityBlob})
}

// Index looks up a column by name, including the payload column.
func (s *Store) Index(name string) (Index, bool) {
	for _, idx := range s.Columns() {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// KeyValue converts a caller-supplied key to the type stored in the key
// column: text for key path stores, integer for surrogate stores.
func (s *Store) KeyValue(key any) (value.Value, error) {
	v, err := value.Of(key)
	if err != nil {
		return nil, fmt.Errorf("store %q key: %w", s.Name, err)
	}
	if s.HasKeyPath() {
		return value.Text(value.KeyString(v)), nil
	}
	n, err := value.Coerce(value.AffinityInteger, v)
	if err != nil {
		return nil, fmt.Errorf("store %q key: %w", s.Name, err)
	}
	return n, nil
}
