// Package codec converts records to table rows and back.
//
// A row always carries the full record as JSON in the payload column, plus a
// typed copy of every declared index field that is present on the record.
// Decoding trusts the payload and then overlays the key and index columns,
// so the typed columns win when the two disagree.
package codec

import (
	"bytes"
	"database/sql"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/value"
)

// Record is a domain object: a JSON-compatible map.
type Record map[string]any

// Row is an encoded record ready to bind into an upsert.
type Row struct {
	// Columns are unquoted column names in bind order. The key column comes
	// first and the payload column last.
	Columns []string

	// Placeholders holds one "?" per column.
	Placeholders []string

	// Values are the bound values, parallel to Columns.
	Values []value.Value

	// Key is the primary key the record is stored under.
	Key value.Value

	// Record is the stored record. For key path stores it carries the key,
	// including a generated one.
	Record Record
}

// Args returns the driver arguments for the row.
func (r Row) Args() []any {
	args := make([]any, len(r.Values))
	for i, v := range r.Values {
		args[i] = v.Any()
	}
	return args
}

// Upsert renders the replace-on-conflict insert for the row.
func (r Row) Upsert(cat schema.Catalog, s *schema.Store) string {
	cols := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = cat.Quote(c)
	}
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		cat.Quote(s.Name),
		strings.Join(cols, ", "),
		strings.Join(r.Placeholders, ", "))
}

// Encode builds the row for rec. key is used by surrogate stores and may be
// nil, in which case the catalog generates one; key path stores read the key
// from the record and generate one when the field is absent or empty. rec is
// not modified.
func Encode(cat schema.Catalog, s *schema.Store, rec Record, key value.Value) (Row, error) {
	stored := maps.Clone(rec)
	if stored == nil {
		stored = Record{}
	}

	var err error
	if s.HasKeyPath() {
		key, err = keyFromRecord(cat, s, stored)
	} else {
		key, err = surrogateKey(cat, s, key)
	}
	if err != nil {
		return Row{}, err
	}

	fields, err := cat.Extract(s, stored)
	if err != nil {
		return Row{}, fmt.Errorf("encode %q: %w", s.Name, err)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return Row{}, fmt.Errorf("encode %q: marshal payload: %w", s.Name, err)
	}

	row := Row{Key: key, Record: stored}
	row.add(s.KeyColumn(), key)
	for _, f := range fields {
		row.add(f.Column, f.Value)
	}
	row.add(schema.PayloadColumn, value.Blob(payload))
	return row, nil
}

func (r *Row) add(col string, v value.Value) {
	r.Columns = append(r.Columns, col)
	r.Placeholders = append(r.Placeholders, "?")
	r.Values = append(r.Values, v)
}

// keyFromRecord returns the key path value as text, generating and storing a
// key when the record has none.
func keyFromRecord(cat schema.Catalog, s *schema.Store, rec Record) (value.Value, error) {
	raw, ok := rec[s.KeyPath]
	if ok && raw != nil && raw != "" {
		v, err := value.Of(raw)
		if err != nil {
			return nil, fmt.Errorf("encode %q: key path %q: %w", s.Name, s.KeyPath, err)
		}
		return value.Text(value.KeyString(v)), nil
	}
	key := cat.NewKey(s)
	rec[s.KeyPath] = value.KeyString(key)
	return value.Text(value.KeyString(key)), nil
}

func surrogateKey(cat schema.Catalog, s *schema.Store, key value.Value) (value.Value, error) {
	if key == nil {
		return cat.NewKey(s), nil
	}
	n, err := value.Coerce(value.AffinityInteger, key)
	if err != nil {
		return nil, fmt.Errorf("encode %q: surrogate key: %w", s.Name, err)
	}
	return n, nil
}

// Decode rebuilds a record from a scanned row: the payload is parsed, then the
// key field and every non-NULL index column are overlaid. Integer and float
// index columns are parsed from their stored form; text columns pass through.
func Decode(s *schema.Store, row map[string]any) (Record, error) {
	rec := Record{}
	if raw, ok := row[schema.PayloadColumn]; ok && raw != nil {
		payload, err := value.FromDriver(value.AffinityBlob, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", s.Name, err)
		}
		parsed, err := parsePayload(payload.Any().([]byte))
		if err != nil {
			return nil, fmt.Errorf("decode %q: parse payload: %w", s.Name, err)
		}
		if parsed != nil {
			rec = parsed
		}
	}

	if s.HasKeyPath() {
		if raw, ok := row[s.KeyPath]; ok && raw != nil {
			key, err := value.FromDriver(value.AffinityText, raw)
			if err != nil {
				return nil, fmt.Errorf("decode %q: key: %w", s.Name, err)
			}
			overlayKey(rec, s.KeyPath, value.KeyString(key))
		}
	}

	for _, idx := range s.Indexes {
		if idx.Name == s.KeyPath {
			continue
		}
		raw, ok := row[idx.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := value.FromDriver(idx.Affinity, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %q: index %q: %w", s.Name, idx.Name, err)
		}
		rec[idx.Name] = v.Any()
	}
	return rec, nil
}

// parsePayload decodes a JSON object keeping integers exact: numbers that
// parse as int64 come back as int64, every other number as float64.
func parsePayload(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	for k, v := range rec {
		rec[k] = exactNumbers(v)
	}
	return rec, nil
}

func exactNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return n
		}
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return string(x)
		}
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = exactNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = exactNumbers(e)
		}
		return x
	default:
		return v
	}
}

// overlayKey writes key into the record unless the payload already holds a
// value with the same text form (a numeric key keeps its number type).
func overlayKey(rec Record, field, key string) {
	if existing, ok := rec[field]; ok && existing != nil {
		if v, err := value.Of(existing); err == nil && value.KeyString(v) == key {
			return
		}
	}
	rec[field] = key
}

// KeyOf reads the primary key of a scanned row.
func KeyOf(s *schema.Store, row map[string]any) (value.Value, error) {
	raw, ok := row[s.KeyColumn()]
	if !ok || raw == nil {
		return nil, fmt.Errorf("decode %q: row has no key column %q", s.Name, s.KeyColumn())
	}
	return value.FromDriver(s.KeyAffinity(), raw)
}

// ScanRow reads the current row of rows into a column-name map.
func ScanRow(rows *sql.Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		row[c] = vals[i]
	}
	return row, nil
}
