package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/txn"
)

// Execute compiles q, submits it on tx and scans the rows. Rows are read
// off the statement first and the descriptor functions run afterwards, so
// they may submit their own statements to tx.
func Execute(ctx context.Context, tx *txn.Tx, cat schema.Catalog, q Query) (Result, error) {
	stmt, params, err := Compile(cat, q)
	if err != nil {
		return Result{}, err
	}
	s, err := cat.Lookup(q.Store)
	if err != nil {
		return Result{}, err
	}

	var rows []map[string]any
	err = tx.Query(ctx, "query", stmt, params, func(r *sql.Rows) error {
		fetched := 0
		for r.Next() {
			fetched++
			if fetched <= q.Offset {
				continue
			}
			if q.Limit > 0 && len(rows) >= q.Limit {
				return nil
			}
			row, err := codec.ScanRow(r)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Reduced: q.Reduce != nil}
	if res.Reduced {
		res.Value = q.Initial
	} else {
		res.Records = []codec.Record{}
	}
	for _, row := range rows {
		rec, err := codec.Decode(s, row)
		if err != nil {
			return Result{}, err
		}
		if q.Continue != nil && !q.Continue(rec) {
			break
		}
		if q.Filter != nil && !q.Filter(rec) {
			continue
		}
		if q.Map != nil {
			rec = q.Map(rec)
		}
		if res.Reduced {
			res.Value = q.Reduce(res.Value, rec)
		} else {
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

// Get returns the record stored under key, or found=false.
func Get(ctx context.Context, tx *txn.Tx, cat schema.Catalog, store string, key any) (codec.Record, bool, error) {
	if key == nil {
		return nil, false, fmt.Errorf("%w: key is required", ErrInvalidQuery)
	}
	res, err := Execute(ctx, tx, cat, Query{Store: store, Range: Only(key), Limit: 1})
	if err != nil {
		return nil, false, err
	}
	if len(res.Records) == 0 {
		return nil, false, nil
	}
	return res.Records[0], true, nil
}

// All returns every record of store in fetch order.
func All(ctx context.Context, tx *txn.Tx, cat schema.Catalog, store string) ([]codec.Record, error) {
	res, err := Execute(ctx, tx, cat, Query{Store: store})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Count returns the number of rows in store.
func Count(ctx context.Context, tx *txn.Tx, cat schema.Catalog, store string) (int, error) {
	s, err := cat.Lookup(store)
	if err != nil {
		return 0, err
	}
	var n int
	stmt := "SELECT COUNT(*) FROM " + cat.Quote(s.Name)
	if err := tx.QueryRow(ctx, "count", stmt, nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}
