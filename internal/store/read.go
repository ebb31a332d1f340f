package store

import (
	"context"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/query"
	"github.com/roach88/docsql/internal/txn"
)

type lookup struct {
	rec   codec.Record
	found bool
}

// Get returns the record stored under key. An absent key yields
// (nil, false, nil).
func (s *Store) Get(ctx context.Context, store string, key any) (codec.Record, bool, error) {
	if _, err := s.cat.Lookup(store); err != nil {
		return nil, false, err
	}
	l, err := txn.Do(ctx, s.gw, txn.ReadOnly, func(ctx context.Context, tx *txn.Tx) (lookup, error) {
		rec, found, err := query.Get(ctx, tx, s.cat, store, key)
		return lookup{rec: rec, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	return l.rec, l.found, nil
}

// GetAll returns every record of store. The slice is empty, not nil, when
// the store has no rows.
func (s *Store) GetAll(ctx context.Context, store string) ([]codec.Record, error) {
	if _, err := s.cat.Lookup(store); err != nil {
		return nil, err
	}
	return txn.Do(ctx, s.gw, txn.ReadOnly, func(ctx context.Context, tx *txn.Tx) ([]codec.Record, error) {
		return query.All(ctx, tx, s.cat, store)
	})
}

// Query runs q with client-side scan semantics; see package query.
func (s *Store) Query(ctx context.Context, q query.Query) (query.Result, error) {
	if _, _, err := query.Compile(s.cat, q); err != nil {
		return query.Result{}, err
	}
	return txn.Do(ctx, s.gw, txn.ReadOnly, func(ctx context.Context, tx *txn.Tx) (query.Result, error) {
		return query.Execute(ctx, tx, s.cat, q)
	})
}

// Count returns the number of records in store.
func (s *Store) Count(ctx context.Context, store string) (int, error) {
	if _, err := s.cat.Lookup(store); err != nil {
		return 0, err
	}
	return txn.Do(ctx, s.gw, txn.ReadOnly, func(ctx context.Context, tx *txn.Tx) (int, error) {
		return query.Count(ctx, tx, s.cat, store)
	})
}
