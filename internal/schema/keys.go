package schema

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// KeyGenerator produces primary keys for records stored without one.
type KeyGenerator interface {
	// TextKey returns a new key for a key path store.
	TextKey() string

	// IntegerKey returns a new surrogate key.
	IntegerKey() int64
}

// UUIDKeys generates time-sortable UUIDv7 text keys and strictly increasing
// microsecond-based surrogate keys.
//
// Thread-safety: UUIDKeys is safe for concurrent use.
type UUIDKeys struct {
	last atomic.Int64
	now  func() time.Time
}

// NewUUIDKeys creates the default key generator.
func NewUUIDKeys() *UUIDKeys {
	return &UUIDKeys{now: time.Now}
}

// TextKey returns a hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (g *UUIDKeys) TextKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IntegerKey returns the current Unix time in microseconds, bumped past the
// previously issued key when the clock has not advanced.
func (g *UUIDKeys) IntegerKey() int64 {
	for {
		prev := g.last.Load()
		next := g.now().UnixMicro()
		if next <= prev {
			next = prev + 1
		}
		if g.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// SequenceKeys returns predictable keys for tests: "<prefix>1", "<prefix>2",
// ... and 1, 2, ... for surrogates.
//
// Thread-safety: SequenceKeys is safe for concurrent use via internal mutex.
type SequenceKeys struct {
	mu     sync.Mutex
	prefix string
	text   int
	seq    int64
}

// NewSequenceKeys creates a SequenceKeys generator.
func NewSequenceKeys(prefix string) *SequenceKeys {
	return &SequenceKeys{prefix: prefix}
}

// TextKey returns the next prefixed key.
func (g *SequenceKeys) TextKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text++
	return fmt.Sprintf("%s%d", g.prefix, g.text)
}

// IntegerKey returns the next surrogate key.
func (g *SequenceKeys) IntegerKey() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq
}
