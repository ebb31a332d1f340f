package txn

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SubmissionOrder(t *testing.T) {
	gw, db := createTestGateway(t)
	ctx := context.Background()

	got, err := Do(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) ([]int, error) {
		if err := insert(ctx, tx, 1); err != nil {
			return nil, err
		}
		// Sees the first insert but not the second.
		if _, err := tx.Exec(ctx, "scale", "UPDATE item SET n = n * 10"); err != nil {
			return nil, err
		}
		if err := insert(ctx, tx, 2); err != nil {
			return nil, err
		}

		var out []int
		err := tx.Query(ctx, "list", "SELECT n FROM item ORDER BY n", nil, func(rows *sql.Rows) error {
			for rows.Next() {
				var n int
				if err := rows.Scan(&n); err != nil {
					return err
				}
				out = append(out, n)
			}
			return nil
		})
		return out, err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10}, got)
	assert.Equal(t, 2, countItems(t, db))
}

func TestOpen_FirstErrorRejectsWithoutRollback(t *testing.T) {
	gw, db := createTestGateway(t)
	ctx := context.Background()

	_, err := Do(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
		var first error
		record := func(err error) {
			if err != nil && first == nil {
				first = err
			}
		}
		record(insert(ctx, tx, 1))
		record(insert(ctx, tx, 1)) // primary key conflict
		record(insert(ctx, tx, 2))
		return struct{}{}, first
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.True(t, IsBackendError(err))

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "insert", be.Op)
	assert.Contains(t, be.Statement, "INSERT INTO item")

	assert.Equal(t, 2, countItems(t, db), "statements around the failure stay applied")
}

func TestOpen_MalformedStatement(t *testing.T) {
	gw, _ := createTestGateway(t)

	_, err := Do(context.Background(), gw, ReadWrite, func(ctx context.Context, tx *Tx) (sql.Result, error) {
		return tx.Exec(ctx, "bad", "INSERT INTO nowhere VALUES (1)")
	})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestOpen_ReadOnlyRejectsWrites(t *testing.T) {
	gw, db := createTestGateway(t)

	_, err := Do(context.Background(), gw, ReadOnly, func(ctx context.Context, tx *Tx) (struct{}, error) {
		return struct{}{}, insert(ctx, tx, 1)
	})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Equal(t, 0, countItems(t, db))
}

func TestOpen_ReadOnlyAllowsReads(t *testing.T) {
	gw, _ := createTestGateway(t)

	n, err := Do(context.Background(), gw, ReadOnly, func(ctx context.Context, tx *Tx) (int, error) {
		var n int
		err := tx.QueryRow(ctx, "count", "SELECT COUNT(*) FROM item", nil, &n)
		return n, err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_QueryRowNoRows(t *testing.T) {
	gw, _ := createTestGateway(t)

	_, err := Do(context.Background(), gw, ReadOnly, func(ctx context.Context, tx *Tx) (int, error) {
		var n int
		err := tx.QueryRow(ctx, "get", "SELECT n FROM item WHERE n = ?", []any{9}, &n)
		return n, err
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, IsBackendError(err))
}

func TestOpen_PanicRollsBack(t *testing.T) {
	gw, db := createTestGateway(t)

	_, err := Do(context.Background(), gw, ReadWrite, func(ctx context.Context, tx *Tx) (int, error) {
		if err := insert(ctx, tx, 1); err != nil {
			return 0, err
		}
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 0, countItems(t, db))
}

func TestOpen_TxUnusableAfterFinish(t *testing.T) {
	gw, _ := createTestGateway(t)

	var leaked *Tx
	_, err := Do(context.Background(), gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
		leaked = tx
		return struct{}{}, nil
	})
	require.NoError(t, err)

	_, err = leaked.Exec(context.Background(), "late", "INSERT INTO item (n) VALUES (1)")
	assert.ErrorIs(t, err, ErrTxDone)
}

func TestOpen_SequentialTransactionsOnOneConnection(t *testing.T) {
	gw, db := createTestGateway(t)
	ctx := context.Background()

	futures := make([]*Future[struct{}], 5)
	for i := range futures {
		n := i
		futures[i] = Open(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
			return struct{}{}, insert(ctx, tx, n)
		})
	}
	for _, f := range futures {
		_, err := f.Await(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, countItems(t, db))
}

func TestRunInTransaction_BindsTokens(t *testing.T) {
	gw, db := createTestGateway(t)
	ctx := context.Background()
	a, b := NewToken("a"), NewToken("b")

	_, err := RunInTransaction(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
		txA, err := a.Tx()
		if err != nil {
			return struct{}{}, err
		}
		txB, err := b.Tx()
		if err != nil {
			return struct{}{}, err
		}
		assert.Same(t, tx, txA)
		assert.Same(t, tx, txB)

		if err := insert(ctx, txA, 1); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, insert(ctx, txB, 2)
	}, a, b).Await(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, countItems(t, db))
	assert.False(t, a.Active())
	assert.False(t, b.Active())
}

func TestRunInTransaction_UnbindsOnError(t *testing.T) {
	gw, _ := createTestGateway(t)
	ctx := context.Background()
	tok := NewToken("batch")
	boom := errors.New("boom")

	_, err := RunInTransaction(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (int, error) {
		assert.True(t, tok.Active())
		return 0, boom
	}, tok).Await(ctx)
	assert.ErrorIs(t, err, boom)

	assert.False(t, tok.Active())
	_, err = tok.Tx()
	assert.ErrorIs(t, err, ErrScopeViolation)
}

func TestRunInTransaction_UnbindsOnPanic(t *testing.T) {
	gw, _ := createTestGateway(t)
	ctx := context.Background()
	tok := NewToken("batch")

	_, err := RunInTransaction(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (int, error) {
		panic("boom")
	}, tok).Await(ctx)
	require.Error(t, err)
	assert.False(t, tok.Active())
}

func TestRunInTransaction_TokenAlreadyBound(t *testing.T) {
	gw, _ := createTestGateway(t)
	ctx := context.Background()
	tok := NewToken("shared")

	_, err := RunInTransaction(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
		_, inner := RunInTransaction(ctx, gw, ReadWrite, func(ctx context.Context, tx *Tx) (struct{}, error) {
			t.Error("inner scope must not run")
			return struct{}{}, nil
		}, tok).Await(ctx)
		assert.ErrorIs(t, inner, ErrScopeViolation)

		// The outer binding survives the failed inner claim.
		bound, err := tok.Tx()
		if err != nil {
			return struct{}{}, err
		}
		assert.Same(t, tx, bound)
		return struct{}{}, nil
	}, tok).Await(ctx)
	require.NoError(t, err)
	assert.False(t, tok.Active())
}

func TestToken_UnboundIsScopeViolation(t *testing.T) {
	tok := NewToken("idle")
	_, err := tok.Tx()
	assert.ErrorIs(t, err, ErrScopeViolation)
	assert.Contains(t, err.Error(), "idle")
	assert.Equal(t, "idle", tok.Name())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "readonly", ReadOnly.String())
	assert.Equal(t, "readwrite", ReadWrite.String())
}
