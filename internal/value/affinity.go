package value

import (
	"fmt"
	"strings"
)

// Affinity is the declared storage class of a column.
type Affinity string

const (
	AffinityInteger Affinity = "integer"
	AffinityFloat   Affinity = "float"
	AffinityText    Affinity = "text"

	// AffinityBlob is reserved for the opaque payload column; indexes
	// cannot declare it.
	AffinityBlob Affinity = "blob"
)

// ParseAffinity accepts the index types a schema file may declare.
// Empty defaults to text.
func ParseAffinity(s string) (Affinity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "string":
		return AffinityText, nil
	case "integer", "int":
		return AffinityInteger, nil
	case "float", "real", "number":
		return AffinityFloat, nil
	default:
		return "", fmt.Errorf("unknown index type %q: must be integer, float, or text", s)
	}
}

// SQLType returns the SQLite column type for the affinity.
func (a Affinity) SQLType() string {
	switch a {
	case AffinityInteger:
		return "INTEGER"
	case AffinityFloat:
		return "REAL"
	case AffinityBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}
