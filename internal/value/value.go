// Package value defines the tagged column values exchanged between records
// and SQLite statements, and the affinities declared by schema indexes.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// ErrMismatch is returned when a Go value cannot be represented under a
// column affinity.
var ErrMismatch = errors.New("docsql: value does not match column affinity")

// Value is a sealed interface over the column values the mapper binds and
// reads. Only Integer, Float, Text and Blob implement it.
type Value interface {
	columnValue() // Sealed

	// Affinity reports the storage class this value binds as.
	Affinity() Affinity

	// Any returns the driver-level representation (int64, float64, string, []byte).
	Any() any
}

// Integer is a 64-bit signed column value.
type Integer int64

func (Integer) columnValue()       {}
func (Integer) Affinity() Affinity { return AffinityInteger }
func (v Integer) Any() any         { return int64(v) }
func (v Integer) String() string   { return strconv.FormatInt(int64(v), 10) }

// Float is a double precision column value.
type Float float64

func (Float) columnValue()       {}
func (Float) Affinity() Affinity { return AffinityFloat }
func (v Float) Any() any         { return float64(v) }
func (v Float) String() string   { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// Text is a UTF-8 string column value.
type Text string

func (Text) columnValue()       {}
func (Text) Affinity() Affinity { return AffinityText }
func (v Text) Any() any         { return string(v) }
func (v Text) String() string   { return string(v) }

// Blob is an opaque byte column value. The payload column is always a Blob.
type Blob []byte

func (Blob) columnValue()       {}
func (Blob) Affinity() Affinity { return AffinityBlob }
func (v Blob) Any() any         { return []byte(v) }
func (v Blob) String() string   { return string(v) }

// Int builds an Integer from any Go integer type.
func Int[T constraints.Integer](n T) Integer {
	return Integer(int64(n))
}

// Real builds a Float from any Go float type.
func Real[T constraints.Float](f T) Float {
	return Float(float64(f))
}

// Of infers a Value from a plain Go value. Used for primary keys, which may
// be string- or number-valued.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case float32, float64, json.Number:
		f, err := toFloat(x)
		if err != nil {
			return nil, err
		}
		if isIntegral(f) {
			return Integer(int64(f)), nil
		}
		return Real(f), nil
	default:
		n, ok, err := toInt(v)
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMismatch, v)
	}
}

// Coerce converts a record field to the tagged value for affinity a. It is
// the encode-side check that a field matches its declared index affinity.
func Coerce(a Affinity, v any) (Value, error) {
	if tagged, ok := v.(Value); ok {
		v = tagged.Any()
	}
	switch a {
	case AffinityInteger:
		if n, ok, err := toInt(v); err != nil {
			return nil, err
		} else if ok {
			return n, nil
		}
		switch v.(type) {
		case float32, float64, json.Number:
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			if !isIntegral(f) {
				return nil, fmt.Errorf("%w: %v is not an integer", ErrMismatch, v)
			}
			return Integer(int64(f)), nil
		}
	case AffinityFloat:
		if n, ok, err := toInt(v); err != nil {
			return nil, err
		} else if ok {
			return Real(float64(n)), nil
		}
		switch v.(type) {
		case float32, float64, json.Number:
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			return Real(f), nil
		}
	case AffinityText:
		if s, ok := v.(string); ok {
			return Text(s), nil
		}
	case AffinityBlob:
		switch x := v.(type) {
		case []byte:
			return Blob(x), nil
		case string:
			return Blob(x), nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown affinity %q", ErrMismatch, a)
	}
	return nil, fmt.Errorf("%w: %T cannot be stored as %s", ErrMismatch, v, a)
}

// FromDriver converts a value scanned from a column of affinity a. Integer
// and float columns are parsed from their stored representation; text and
// blob columns are taken as stored. A NULL column yields (nil, nil).
func FromDriver(a Affinity, v any) (Value, error) {
	if v == nil {
		return nil, nil
	}
	switch a {
	case AffinityInteger:
		switch x := v.(type) {
		case int64:
			return Integer(x), nil
		case float64:
			if isIntegral(x) {
				return Integer(int64(x)), nil
			}
		case string:
			return parseInteger(x)
		case []byte:
			return parseInteger(string(x))
		}
	case AffinityFloat:
		switch x := v.(type) {
		case float64:
			return Float(x), nil
		case int64:
			return Float(float64(x)), nil
		case string:
			return parseFloat(x)
		case []byte:
			return parseFloat(string(x))
		}
	case AffinityText:
		switch x := v.(type) {
		case string:
			return Text(x), nil
		case []byte:
			return Text(x), nil
		}
	case AffinityBlob:
		switch x := v.(type) {
		case []byte:
			return Blob(x), nil
		case string:
			return Blob(x), nil
		}
	}
	return nil, fmt.Errorf("%w: column value %T is not %s", ErrMismatch, v, a)
}

// KeyString renders a key the way a text primary key column stores it.
func KeyString(v Value) string {
	if v == nil {
		return ""
	}
	return v.(fmt.Stringer).String()
}

func parseInteger(s string) (Value, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse integer %q: %v", ErrMismatch, s, err)
	}
	return Integer(n), nil
}

func parseFloat(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse float %q: %v", ErrMismatch, s, err)
	}
	return Real(f), nil
}

// toInt handles every Go integer kind. ok is false when v is not an integer.
func toInt(v any) (Integer, bool, error) {
	switch x := v.(type) {
	case Integer:
		return x, true, nil
	case int:
		return Int(x), true, nil
	case int8:
		return Int(x), true, nil
	case int16:
		return Int(x), true, nil
	case int32:
		return Int(x), true, nil
	case int64:
		return Int(x), true, nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint8:
		return Int(x), true, nil
	case uint16:
		return Int(x), true, nil
	case uint32:
		return Int(x), true, nil
	case uint64:
		return fromUnsigned(x)
	}
	return 0, false, nil
}

func fromUnsigned(u uint64) (Integer, bool, error) {
	if u > math.MaxInt64 {
		return 0, true, fmt.Errorf("%w: %d overflows int64", ErrMismatch, u)
	}
	return Int(u), true, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMismatch, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a float", ErrMismatch, v)
}

func isIntegral(f float64) bool {
	// float64(math.MaxInt64) rounds up to 2^63, which overflows int64.
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < 0x1p63
}
