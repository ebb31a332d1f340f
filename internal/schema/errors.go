package schema

import "errors"

var (
	// ErrUnknownStore is returned when an operation names a store the catalog
	// does not declare. No statement is issued.
	ErrUnknownStore = errors.New("docsql: unknown store")

	// ErrReservedName is returned when a definition declares "_key" or
	// "_value" as an index or key path.
	ErrReservedName = errors.New("docsql: reserved column name")

	// ErrInvalidSchema is returned for malformed schema definitions.
	ErrInvalidSchema = errors.New("docsql: invalid schema")
)
