package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/value"
)

func noteDefinition() Definition {
	return Definition{
		Name:    "notes",
		Version: 2,
		Stores: []StoreDef{
			{
				Name:    "note",
				KeyPath: "id",
				Indexes: []IndexDef{
					{Name: "tag", Type: "text"},
					{Name: "rank", Type: "integer", Unique: true},
				},
			},
			{
				Name:    "event",
				Indexes: []IndexDef{{Name: "score", Type: "float"}},
			},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(noteDefinition(), NewSequenceKeys("k"))
	require.NoError(t, err)

	assert.Equal(t, "notes", reg.Name())
	assert.Equal(t, 2, reg.Version())
	require.Len(t, reg.Stores(), 2)
	assert.Equal(t, "note", reg.Stores()[0].Name)
	assert.Equal(t, "event", reg.Stores()[1].Name)

	note, err := reg.Lookup("note")
	require.NoError(t, err)
	assert.True(t, note.HasKeyPath())
	assert.Equal(t, "id", note.KeyColumn())
	assert.Equal(t, value.AffinityText, note.KeyAffinity())
	assert.Equal(t, []Index{
		{Name: "tag", Affinity: value.AffinityText},
		{Name: "rank", Affinity: value.AffinityInteger, Unique: true},
	}, note.Indexes)

	event, err := reg.Lookup("event")
	require.NoError(t, err)
	assert.False(t, event.HasKeyPath())
	assert.Equal(t, KeyColumn, event.KeyColumn())
	assert.Equal(t, value.AffinityInteger, event.KeyAffinity())
}

func TestNewRegistry_DefaultVersion(t *testing.T) {
	def := noteDefinition()
	def.Version = 0
	reg, err := NewRegistry(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Version())
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
		want   error
	}{
		{"no stores", func(d *Definition) { d.Stores = nil }, ErrInvalidSchema},
		{"negative version", func(d *Definition) { d.Version = -1 }, ErrInvalidSchema},
		{"empty store name", func(d *Definition) { d.Stores[0].Name = " " }, ErrInvalidSchema},
		{"duplicate store", func(d *Definition) { d.Stores[1].Name = "note" }, ErrInvalidSchema},
		{"duplicate index", func(d *Definition) {
			d.Stores[0].Indexes = append(d.Stores[0].Indexes, IndexDef{Name: "tag"})
		}, ErrInvalidSchema},
		{"bad index type", func(d *Definition) { d.Stores[0].Indexes[0].Type = "date" }, ErrInvalidSchema},
		{"reserved payload index", func(d *Definition) {
			d.Stores[0].Indexes[0].Name = PayloadColumn
		}, ErrReservedName},
		{"reserved key path", func(d *Definition) { d.Stores[0].KeyPath = KeyColumn }, ErrReservedName},
		{"reserved payload index in other case", func(d *Definition) {
			d.Stores[0].Indexes[0].Name = "_Value"
		}, ErrReservedName},
		{"reserved key path in other case", func(d *Definition) { d.Stores[0].KeyPath = "_KEY" }, ErrReservedName},
		{"index differs from key path only in case", func(d *Definition) {
			d.Stores[0].Indexes = append(d.Stores[0].Indexes, IndexDef{Name: "ID"})
		}, ErrInvalidSchema},
		{"duplicate index in other case", func(d *Definition) {
			d.Stores[0].Indexes = append(d.Stores[0].Indexes, IndexDef{Name: "Tag"})
		}, ErrInvalidSchema},
		{"duplicate store in other case", func(d *Definition) { d.Stores[1].Name = "Note" }, ErrInvalidSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := noteDefinition()
			tt.mutate(&def)
			_, err := NewRegistry(def, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRegistry_IndexNamedLikeKeyPath(t *testing.T) {
	def := noteDefinition()
	def.Stores[0].Indexes = append(def.Stores[0].Indexes, IndexDef{Name: "id"})

	reg, err := NewRegistry(def, nil)
	require.NoError(t, err)
	note, err := reg.Lookup("note")
	require.NoError(t, err)

	for _, col := range note.Columns() {
		assert.NotEqual(t, "id", col.Name)
	}
}

func TestNewRegistry_NonASCIICaseIsDistinct(t *testing.T) {
	def := Definition{Stores: []StoreDef{{Name: "été"}, {Name: "Été"}}}
	_, err := NewRegistry(def, nil)
	assert.NoError(t, err)
}

func TestRegistry_NormalizesNames(t *testing.T) {
	def := Definition{Stores: []StoreDef{{Name: "cafe\u0301"}}}
	reg, err := NewRegistry(def, nil)
	require.NoError(t, err)

	// Composed and decomposed forms resolve to the same store.
	s, err := reg.Lookup("caf\u00e9")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", s.Name)

	_, err = reg.Lookup("cafe\u0301")
	assert.NoError(t, err)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg, err := NewRegistry(noteDefinition(), nil)
	require.NoError(t, err)

	_, err = reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownStore)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistry_Quote(t *testing.T) {
	reg, err := NewRegistry(noteDefinition(), nil)
	require.NoError(t, err)

	assert.Equal(t, `"note"`, reg.Quote("note"))
	assert.Equal(t, `"say ""hi"""`, reg.Quote(`say "hi"`))
}

func TestRegistry_NewKey(t *testing.T) {
	reg, err := NewRegistry(noteDefinition(), NewSequenceKeys("k"))
	require.NoError(t, err)
	note, _ := reg.Lookup("note")
	event, _ := reg.Lookup("event")

	assert.Equal(t, value.Text("k1"), reg.NewKey(note))
	assert.Equal(t, value.Text("k2"), reg.NewKey(note))
	assert.Equal(t, value.Integer(1), reg.NewKey(event))
}

func TestRegistry_Extract(t *testing.T) {
	reg, err := NewRegistry(noteDefinition(), nil)
	require.NoError(t, err)
	note, _ := reg.Lookup("note")

	fields, err := reg.Extract(note, map[string]any{
		"id":   "a",
		"tag":  "x",
		"rank": float64(3),
		"body": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Column: "tag", Value: value.Text("x")},
		{Column: "rank", Value: value.Integer(3)},
	}, fields)

	// Absent and nil fields are omitted.
	fields, err = reg.Extract(note, map[string]any{"id": "b", "tag": nil})
	require.NoError(t, err)
	assert.Empty(t, fields)

	_, err = reg.Extract(note, map[string]any{"rank": "high"})
	assert.ErrorIs(t, err, value.ErrMismatch)
}

func TestStore_Columns(t *testing.T) {
	s := &Store{
		Name:    "user",
		KeyPath: "email",
		Indexes: []Index{
			{Name: "email", Affinity: value.AffinityText, Unique: true},
			{Name: "age", Affinity: value.AffinityInteger},
		},
	}

	cols := s.Columns()
	require.Len(t, cols, 2, "the key path index is carried by the key column")
	assert.Equal(t, "age", cols[0].Name)
	assert.Equal(t, Index{Name: PayloadColumn, Affinity: value.AffinityBlob}, cols[1])

	_, ok := s.Index(PayloadColumn)
	assert.True(t, ok)
	_, ok = s.Index("email")
	assert.False(t, ok)
}

func TestStore_KeyValue(t *testing.T) {
	keyed := &Store{Name: "note", KeyPath: "id"}
	v, err := keyed.KeyValue(12)
	require.NoError(t, err)
	assert.Equal(t, value.Text("12"), v)

	surrogate := &Store{Name: "event"}
	v, err = surrogate.KeyValue(float64(7))
	require.NoError(t, err)
	assert.Equal(t, value.Integer(7), v)

	_, err = surrogate.KeyValue("seven")
	assert.ErrorIs(t, err, value.ErrMismatch)
}
