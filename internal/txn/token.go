package txn

import (
	"fmt"
	"sync"
)

// Token is a caller-owned handle through which token-addressed calls reach
// the transaction of the enclosing RunInTransaction call. A Token is bound to
// at most one live scope at a time.
//
// Thread-safety: Token is safe for concurrent use.
type Token struct {
	name string

	mu sync.Mutex
	tx *Tx
}

// NewToken creates an unbound token. name appears in errors only.
func NewToken(name string) *Token {
	return &Token{name: name}
}

// Name returns the token's name.
func (k *Token) Name() string { return k.name }

// Tx returns the bound transaction, or ErrScopeViolation when the token is
// not inside a RunInTransaction call.
func (k *Token) Tx() (*Tx, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tx == nil {
		return nil, fmt.Errorf("%w: token %q", ErrScopeViolation, k.name)
	}
	return k.tx, nil
}

// Active reports whether the token is currently bound.
func (k *Token) Active() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tx != nil
}

func (k *Token) bind(tx *Tx) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tx != nil {
		return fmt.Errorf("%w: token %q is already bound to transaction %d", ErrScopeViolation, k.name, k.tx.id)
	}
	k.tx = tx
	return nil
}

// unbind clears the association if it still points at tx.
func (k *Token) unbind(tx *Tx) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tx == tx {
		k.tx = nil
	}
}
