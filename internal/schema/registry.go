package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/docsql/internal/value"
)

// Definition is the declarative form of a catalog, as read from a schema file.
type Definition struct {
	Name    string     `yaml:"name" json:"name"`
	Version int        `yaml:"version" json:"version"`
	Stores  []StoreDef `yaml:"stores" json:"stores"`
}

// StoreDef declares one store.
type StoreDef struct {
	Name    string     `yaml:"name" json:"name"`
	KeyPath string     `yaml:"key_path,omitempty" json:"key_path,omitempty"`
	Indexes []IndexDef `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// IndexDef declares one index. Type is integer, float or text (default).
type IndexDef struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`
	Unique bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// Registry is the Catalog built from a Definition.
type Registry struct {
	name    string
	version int
	stores  []*Store
	byName  map[string]*Store
	folded  map[string]string
	keys    KeyGenerator
}

// NewRegistry validates def and builds a Registry. Identifiers are
// normalized to Unicode NFC so that visually identical names resolve to the
// same table. A zero version defaults to 1.
func NewRegistry(def Definition, keys KeyGenerator) (*Registry, error) {
	if keys == nil {
		keys = NewUUIDKeys()
	}
	r := &Registry{
		name:    norm.NFC.String(def.Name),
		version: def.Version,
		byName:  make(map[string]*Store, len(def.Stores)),
		folded:  make(map[string]string, len(def.Stores)),
		keys:    keys,
	}
	if r.version == 0 {
		r.version = 1
	}
	if r.version < 0 {
		return nil, fmt.Errorf("%w: negative version %d", ErrInvalidSchema, def.Version)
	}
	if len(def.Stores) == 0 {
		return nil, fmt.Errorf("%w: no stores declared", ErrInvalidSchema)
	}

	for i, sd := range def.Stores {
		s, err := buildStore(sd)
		if err != nil {
			return nil, fmt.Errorf("stores[%d]: %w", i, err)
		}
		if prev, dup := r.folded[foldIdent(s.Name)]; dup {
			return nil, fmt.Errorf("%w: store %q duplicates store %q", ErrInvalidSchema, s.Name, prev)
		}
		r.stores = append(r.stores, s)
		r.byName[s.Name] = s
		r.folded[foldIdent(s.Name)] = s.Name
	}
	return r, nil
}

func buildStore(sd StoreDef) (*Store, error) {
	s := &Store{
		Name:    norm.NFC.String(strings.TrimSpace(sd.Name)),
		KeyPath: norm.NFC.String(strings.TrimSpace(sd.KeyPath)),
	}
	if s.Name == "" {
		return nil, fmt.Errorf("%w: store name is empty", ErrInvalidSchema)
	}
	if isReserved(s.KeyPath) {
		return nil, fmt.Errorf("%w: store %q key path %q", ErrReservedName, s.Name, s.KeyPath)
	}

	seen := make(map[string]string, len(sd.Indexes))
	for _, id := range sd.Indexes {
		name := norm.NFC.String(strings.TrimSpace(id.Name))
		if name == "" {
			return nil, fmt.Errorf("%w: store %q has an unnamed index", ErrInvalidSchema, s.Name)
		}
		if isReserved(name) {
			return nil, fmt.Errorf("%w: store %q index %q", ErrReservedName, s.Name, name)
		}
		if prev, dup := seen[foldIdent(name)]; dup {
			return nil, fmt.Errorf("%w: store %q index %q duplicates index %q", ErrInvalidSchema, s.Name, name, prev)
		}
		seen[foldIdent(name)] = name
		// An index named exactly like the key path is carried by the key
		// column; one differing only in case would be a second column with
		// the same SQL name.
		if name != s.KeyPath && s.HasKeyPath() && foldIdent(name) == foldIdent(s.KeyPath) {
			return nil, fmt.Errorf("%w: store %q index %q collides with key path %q", ErrInvalidSchema, s.Name, name, s.KeyPath)
		}

		aff, err := value.ParseAffinity(id.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: store %q index %q: %v", ErrInvalidSchema, s.Name, name, err)
		}
		s.Indexes = append(s.Indexes, Index{Name: name, Affinity: aff, Unique: id.Unique})
	}
	return s, nil
}

func isReserved(name string) bool {
	f := foldIdent(name)
	return f == KeyColumn || f == PayloadColumn
}

// foldIdent folds ASCII letters to lower case, matching how SQLite compares
// identifiers. Non-ASCII letters are compared exactly, as SQLite does.
func foldIdent(name string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}

// Name implements Catalog.
func (r *Registry) Name() string { return r.name }

// Version implements Catalog.
func (r *Registry) Version() int { return r.version }

// Stores implements Catalog.
func (r *Registry) Stores() []*Store { return r.stores }

// Lookup implements Catalog.
func (r *Registry) Lookup(name string) (*Store, error) {
	s, ok := r.byName[norm.NFC.String(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return s, nil
}

// Quote implements Catalog using SQL double-quoted identifiers.
func (r *Registry) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// NewKey implements Catalog.
func (r *Registry) NewKey(s *Store) value.Value {
	if s.HasKeyPath() {
		return value.Text(r.keys.TextKey())
	}
	return value.Integer(r.keys.IntegerKey())
}

// Extract implements Catalog. The key path field is not an index column and
// is never extracted.
func (r *Registry) Extract(s *Store, rec map[string]any) ([]Field, error) {
	var fields []Field
	for _, idx := range s.Indexes {
		if idx.Name == s.KeyPath {
			continue
		}
		raw, ok := rec[idx.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := value.Coerce(idx.Affinity, raw)
		if err != nil {
			return nil, fmt.Errorf("store %q index %q: %w", s.Name, idx.Name, err)
		}
		fields = append(fields, Field{Column: idx.Name, Value: v})
	}
	return fields, nil
}
