package query

import (
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/value"
)

// Compile converts q into a parameterized SELECT. All range bounds are bound
// as parameters, never interpolated.
func Compile(cat schema.Catalog, q Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	s, err := cat.Lookup(q.Store)
	if err != nil {
		return "", nil, err
	}

	stmt := "SELECT * FROM " + cat.Quote(s.Name)
	where, params, err := compileRange(cat, s, q.Range)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, params, nil
}

// compileRange renders the key range as a predicate on the key column.
func compileRange(cat schema.Catalog, s *schema.Store, r *KeyRange) (string, []any, error) {
	if r == nil || (r.Lower == nil && r.Upper == nil) {
		return "", nil, nil
	}
	col := cat.Quote(s.KeyColumn())

	lower, err := bound(s, r.Lower)
	if err != nil {
		return "", nil, err
	}
	upper, err := bound(s, r.Upper)
	if err != nil {
		return "", nil, err
	}

	if lower != nil && upper != nil && !r.LowerOpen && !r.UpperOpen &&
		value.KeyString(lower) == value.KeyString(upper) {
		return col + " = ?", []any{lower.Any()}, nil
	}

	var parts []string
	var params []any
	if lower != nil {
		op := ">="
		if r.LowerOpen {
			op = ">"
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", col, op))
		params = append(params, lower.Any())
	}
	if upper != nil {
		op := "<="
		if r.UpperOpen {
			op = "<"
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", col, op))
		params = append(params, upper.Any())
	}
	return strings.Join(parts, " AND "), params, nil
}

func bound(s *schema.Store, key any) (value.Value, error) {
	if key == nil {
		return nil, nil
	}
	v, err := s.KeyValue(key)
	if err != nil {
		return nil, fmt.Errorf("%w: key range: %v", ErrInvalidQuery, err)
	}
	return v, nil
}
