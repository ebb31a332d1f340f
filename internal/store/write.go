package store

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/migrate"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

// Put upserts recs into store in one transaction and returns their keys in
// order. The first failure is returned; records after it are still written
// and records before it stay written. keys[i] is nil for a record that
// failed.
func (s *Store) Put(ctx context.Context, store string, recs ...codec.Record) ([]value.Value, error) {
	st, err := s.cat.Lookup(store)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []value.Value{}, nil
	}
	return txn.Do(ctx, s.gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) ([]value.Value, error) {
		return putRecords(ctx, tx, s.cat, st, recs, nil)
	})
}

// PutOne upserts a single record and returns its key.
func (s *Store) PutOne(ctx context.Context, store string, rec codec.Record) (value.Value, error) {
	keys, err := s.Put(ctx, store, rec)
	if err != nil {
		return nil, err
	}
	return keys[0], nil
}

// PutWithKey upserts rec under key. For key path stores the key replaces the
// record's key field.
func (s *Store) PutWithKey(ctx context.Context, store string, key any, rec codec.Record) (value.Value, error) {
	st, err := s.cat.Lookup(store)
	if err != nil {
		return nil, err
	}
	k, rec, err := withKey(st, key, rec)
	if err != nil {
		return nil, err
	}
	keys, err := txn.Do(ctx, s.gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) ([]value.Value, error) {
		return putRecords(ctx, tx, s.cat, st, []codec.Record{rec}, []value.Value{k})
	})
	if err != nil {
		return nil, err
	}
	return keys[0], nil
}

// Delete removes the record stored under key. Deleting an absent key is not
// an error.
func (s *Store) Delete(ctx context.Context, store string, key any) error {
	st, err := s.cat.Lookup(store)
	if err != nil {
		return err
	}
	k, err := st.KeyValue(key)
	if err != nil {
		return err
	}
	_, err = txn.Do(ctx, s.gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) (struct{}, error) {
		return struct{}{}, deleteKey(ctx, tx, s.cat, st, k)
	})
	return err
}

// ClearStore deletes every row of store.
func (s *Store) ClearStore(ctx context.Context, store string) error {
	st, err := s.cat.Lookup(store)
	if err != nil {
		return err
	}
	_, err = txn.Do(ctx, s.gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) (struct{}, error) {
		return struct{}{}, clearTable(ctx, tx, s.cat, st)
	})
	return err
}

// Clear deletes every row of every store. Each store is cleared in its own
// transaction; a failure does not stop the others and the first one is
// returned.
func (s *Store) Clear(ctx context.Context) error {
	var g errgroup.Group
	for _, st := range s.cat.Stores() {
		st := st
		g.Go(func() error {
			return s.ClearStore(ctx, st.Name)
		})
	}
	return g.Wait()
}

// Remove deletes the row under key, or drops the whole store when key is nil.
func (s *Store) Remove(ctx context.Context, store string, key any) error {
	if key != nil {
		return s.Delete(ctx, store, key)
	}
	return s.DropStore(ctx, store)
}

// DropStore drops the table of store and resets the recorded version, so
// the next Open (or Migrate) re-creates it.
func (s *Store) DropStore(ctx context.Context, store string) error {
	st, err := s.cat.Lookup(store)
	if err != nil {
		return err
	}
	return s.drop(ctx, st)
}

// DropAll drops every table of the catalog and resets the recorded version.
func (s *Store) DropAll(ctx context.Context) error {
	return s.drop(ctx, s.cat.Stores()...)
}

func (s *Store) drop(ctx context.Context, stores ...*schema.Store) error {
	_, err := txn.Do(ctx, s.gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) (struct{}, error) {
		var first error
		for _, st := range stores {
			if err := dropTable(ctx, tx, s.cat, st); err != nil && first == nil {
				first = err
			}
		}
		if err := migrate.ResetVersion(ctx, tx); err != nil && first == nil {
			first = err
		}
		return struct{}{}, first
	})
	return err
}

// putRecords encodes and upserts recs in order on tx. keys, when non-nil,
// supplies the caller's key per record.
func putRecords(ctx context.Context, tx *txn.Tx, cat schema.Catalog, st *schema.Store, recs []codec.Record, keys []value.Value) ([]value.Value, error) {
	out := make([]value.Value, len(recs))
	var first error
	for i, rec := range recs {
		var key value.Value
		if i < len(keys) {
			key = keys[i]
		}
		row, err := codec.Encode(cat, st, rec, key)
		if err != nil {
			tx.Logger().Warn("record rejected", "tx", tx.ID(), "store", st.Name, "index", i, "error", err)
			if first == nil {
				first = fmt.Errorf("put %q[%d]: %w", st.Name, i, err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, "put", row.Upsert(cat, st), row.Args()...); err != nil {
			if first == nil {
				first = fmt.Errorf("put %q[%d]: %w", st.Name, i, err)
			}
			continue
		}
		out[i] = row.Key
	}
	return out, first
}

func deleteKey(ctx context.Context, tx *txn.Tx, cat schema.Catalog, st *schema.Store, key value.Value) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", cat.Quote(st.Name), cat.Quote(st.KeyColumn()))
	_, err := tx.Exec(ctx, "delete", stmt, key.Any())
	return err
}

func clearTable(ctx context.Context, tx *txn.Tx, cat schema.Catalog, st *schema.Store) error {
	_, err := tx.Exec(ctx, "clear", "DELETE FROM "+cat.Quote(st.Name))
	return err
}

func dropTable(ctx context.Context, tx *txn.Tx, cat schema.Catalog, st *schema.Store) error {
	_, err := tx.Exec(ctx, "drop", "DROP TABLE IF EXISTS "+cat.Quote(st.Name))
	return err
}

// withKey converts key for st. Key path stores get the key written into a
// copy of rec; surrogate stores carry it separately.
func withKey(st *schema.Store, key any, rec codec.Record) (value.Value, codec.Record, error) {
	k, err := st.KeyValue(key)
	if err != nil {
		return nil, nil, err
	}
	if !st.HasKeyPath() {
		return k, rec, nil
	}
	out := make(codec.Record, len(rec)+1)
	maps.Copy(out, rec)
	out[st.KeyPath] = k.Any()
	return nil, out, nil
}
