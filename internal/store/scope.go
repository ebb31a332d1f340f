package store

import (
	"context"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/query"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

// RunInTransaction runs fn in one physical transaction bound to every token.
// Inside fn, the InTransaction methods reach that transaction through any of
// the tokens. The tokens are released when RunInTransaction returns, on
// every path. fn's error is returned, but statements it already ran are
// committed; only a panic rolls the transaction back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error, mode txn.Mode, tokens ...*txn.Token) error {
	_, err := txn.RunInTransaction(ctx, s.gw, mode, func(ctx context.Context, _ *txn.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, tokens...).Await(context.WithoutCancel(ctx))
	return err
}

// GetInTransaction is Get on the transaction bound to tok.
func (s *Store) GetInTransaction(ctx context.Context, tok *txn.Token, store string, key any) (codec.Record, bool, error) {
	tx, err := tok.Tx()
	if err != nil {
		return nil, false, err
	}
	return query.Get(ctx, tx, s.cat, store, key)
}

// PutInTransaction upserts rec on the transaction bound to tok and returns
// its key.
func (s *Store) PutInTransaction(ctx context.Context, tok *txn.Token, store string, rec codec.Record) (value.Value, error) {
	tx, err := tok.Tx()
	if err != nil {
		return nil, err
	}
	st, err := s.cat.Lookup(store)
	if err != nil {
		return nil, err
	}
	keys, err := putRecords(ctx, tx, s.cat, st, []codec.Record{rec}, nil)
	if err != nil {
		return nil, err
	}
	return keys[0], nil
}

// ClearInTransaction deletes the row under key on the transaction bound to
// tok, or every row of store when key is nil.
func (s *Store) ClearInTransaction(ctx context.Context, tok *txn.Token, store string, key any) error {
	tx, err := tok.Tx()
	if err != nil {
		return err
	}
	st, err := s.cat.Lookup(store)
	if err != nil {
		return err
	}
	if key == nil {
		return clearTable(ctx, tx, s.cat, st)
	}
	k, err := st.KeyValue(key)
	if err != nil {
		return err
	}
	return deleteKey(ctx, tx, s.cat, st, k)
}
