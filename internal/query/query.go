package query

import (
	"errors"
	"fmt"

	"github.com/roach88/docsql/internal/codec"
)

// ErrInvalidQuery is returned for malformed descriptors.
var ErrInvalidQuery = errors.New("docsql: invalid query")

// KeyRange restricts the primary key. A nil bound is unbounded. Bounds are
// converted to the store's key type at compile time.
type KeyRange struct {
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// Only matches exactly one key.
func Only(key any) *KeyRange {
	return &KeyRange{Lower: key, Upper: key}
}

// LowerBound matches keys above key (strictly when open).
func LowerBound(key any, open bool) *KeyRange {
	return &KeyRange{Lower: key, LowerOpen: open}
}

// UpperBound matches keys below key (strictly when open).
func UpperBound(key any, open bool) *KeyRange {
	return &KeyRange{Upper: key, UpperOpen: open}
}

// Bound matches keys between lower and upper.
func Bound(lower, upper any, lowerOpen, upperOpen bool) *KeyRange {
	return &KeyRange{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}

// Query describes a scan over one store.
type Query struct {
	// Store names the store to scan.
	Store string

	// Range restricts the primary key (nil = every row).
	Range *KeyRange

	// The functions below run after the statement has been read to the end,
	// so they may issue their own statements on the same transaction.

	// Continue is evaluated on every scanned row before Filter; returning
	// false ends the scan without including the row.
	Continue func(rec codec.Record) bool

	// Filter selects the rows that reach Map/Reduce. nil accepts every row.
	Filter func(rec codec.Record) bool

	// Map transforms accepted rows.
	Map func(rec codec.Record) codec.Record

	// Reduce, when set, folds accepted rows into Result.Value starting from
	// Initial instead of collecting them.
	Reduce  func(acc any, rec codec.Record) any
	Initial any

	// Limit caps the number of scanned rows (0 = unlimited).
	Limit int

	// Offset skips fetched rows before scanning starts.
	Offset int
}

// Validate checks the descriptor shape. Store existence is checked at compile time.
func (q Query) Validate() error {
	if q.Store == "" {
		return fmt.Errorf("%w: store is required", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidQuery, q.Offset)
	}
	return nil
}

// Result is the outcome of a scan.
type Result struct {
	// Records holds the accepted (and mapped) rows in fetch order. Empty,
	// not nil, when nothing matched. nil in fold mode.
	Records []codec.Record

	// Value is the fold accumulator when Reduced is true.
	Value any

	// Reduced reports that the query ran in fold mode.
	Reduced bool
}
