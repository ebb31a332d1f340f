package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

func TestRunInTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("batch")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		assert.True(t, tok.Active())
		key, err := s.PutInTransaction(ctx, tok, "note", codec.Record{"id": "a", "tag": "x"})
		if err != nil {
			return err
		}
		assert.Equal(t, value.Text("a"), key)

		rec, found, err := s.GetInTransaction(ctx, tok, "note", "a")
		if err != nil {
			return err
		}
		assert.True(t, found)
		assert.Equal(t, "x", rec["tag"])
		return nil
	}, txn.ReadWrite, tok)
	require.NoError(t, err)

	assert.False(t, tok.Active())
	_, _, err = s.GetInTransaction(ctx, tok, "note", "a")
	assert.ErrorIs(t, err, txn.ErrScopeViolation)

	_, found, err := s.Get(ctx, "note", "a")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRunInTransaction_ErrorKeepsWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("batch")
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.PutInTransaction(ctx, tok, "note", codec.Record{"id": "a"}); err != nil {
			return err
		}
		return boom
	}, txn.ReadWrite, tok)
	assert.ErrorIs(t, err, boom)
	assert.False(t, tok.Active())

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("batch")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.PutInTransaction(ctx, tok, "note", codec.Record{"id": "a"}); err != nil {
			return err
		}
		panic("bad batch")
	}, txn.ReadWrite, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad batch")
	assert.False(t, tok.Active())

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunInTransaction_SharedByTokens(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	notes, users := txn.NewToken("notes"), txn.NewToken("users")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		nt, err := notes.Tx()
		if err != nil {
			return err
		}
		ut, err := users.Tx()
		if err != nil {
			return err
		}
		assert.Same(t, nt, ut)

		if _, err := s.PutInTransaction(ctx, notes, "note", codec.Record{"id": "a"}); err != nil {
			return err
		}
		_, err = s.PutInTransaction(ctx, users, "user", codec.Record{"email": "a@x"})
		return err
	}, txn.ReadWrite, notes, users)
	require.NoError(t, err)
	assert.False(t, notes.Active())
	assert.False(t, users.Active())
}

func TestRunInTransaction_TokenAlreadyBound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("batch")

	var nested error
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		nested = s.RunInTransaction(ctx, func(context.Context) error { return nil }, txn.ReadWrite, tok)
		return nil
	}, txn.ReadWrite, tok)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, txn.ErrScopeViolation)
	assert.False(t, tok.Active())
}

func TestRunInTransaction_ReadOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("reader")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.PutInTransaction(ctx, tok, "note", codec.Record{"id": "a"})
		return err
	}, txn.ReadOnly, tok)
	assert.ErrorIs(t, err, txn.ErrReadOnly)
}

func TestClearInTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("batch")

	_, err := s.Put(ctx, "note", codec.Record{"id": "a"}, codec.Record{"id": "b"}, codec.Record{"id": "c"})
	require.NoError(t, err)
	_, err = s.PutOne(ctx, "reading", codec.Record{"celsius": 1})
	require.NoError(t, err)

	err = s.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ClearInTransaction(ctx, tok, "note", "a"); err != nil {
			return err
		}
		return s.ClearInTransaction(ctx, tok, "reading", nil)
	}, txn.ReadWrite, tok)
	require.NoError(t, err)

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.Count(ctx, "reading")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInTransaction_OutsideScope(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tok := txn.NewToken("idle")

	_, _, err := s.GetInTransaction(ctx, tok, "note", "a")
	assert.ErrorIs(t, err, txn.ErrScopeViolation)
	_, err = s.PutInTransaction(ctx, tok, "note", codec.Record{"id": "a"})
	assert.ErrorIs(t, err, txn.ErrScopeViolation)
	assert.ErrorIs(t, s.ClearInTransaction(ctx, tok, "note", "a"), txn.ErrScopeViolation)

	n, err := s.Count(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
