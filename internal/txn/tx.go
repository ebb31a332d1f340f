package txn

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
)

// Mode selects whether a transaction may write.
type Mode int

const (
	// ReadOnly transactions reject Exec with ErrReadOnly.
	ReadOnly Mode = iota

	// ReadWrite transactions accept every statement.
	ReadWrite
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ReadOnly {
		return "readonly"
	}
	return "readwrite"
}

// Tx is one physical transaction. Statements are submitted one at a time in
// the order the calls are made; a statement's rows are fully consumed before
// the next statement runs.
//
// Thread-safety: Tx is safe for concurrent use; concurrent submissions are
// serialized.
type Tx struct {
	mu     sync.Mutex
	tx     *sql.Tx
	id     uint64
	mode   Mode
	done   bool
	logger *slog.Logger
}

// ID identifies the transaction in log output.
func (t *Tx) ID() uint64 { return t.id }

// Mode reports the transaction mode.
func (t *Tx) Mode() Mode { return t.mode }

// Logger returns the gateway's logger.
func (t *Tx) Logger() *slog.Logger { return t.logger }

// Exec submits a statement that returns no rows. op names the logical
// operation for errors and logs.
func (t *Tx) Exec(ctx context.Context, op, stmt string, args ...any) (sql.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done || t.tx == nil {
		return nil, ErrTxDone
	}
	if t.mode == ReadOnly {
		return nil, ErrReadOnly
	}
	res, err := t.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, t.fail(op, stmt, err)
	}
	return res, nil
}

// Query submits a statement and hands its rows to scan. The rows are closed
// when scan returns. Errors returned by scan itself are passed through
// unwrapped.
func (t *Tx) Query(ctx context.Context, op, stmt string, args []any, scan func(*sql.Rows) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done || t.tx == nil {
		return ErrTxDone
	}
	rows, err := t.tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return t.fail(op, stmt, err)
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return t.fail(op, stmt, err)
	}
	return nil
}

// QueryRow submits a single-row statement and scans it into dest.
// sql.ErrNoRows is returned unwrapped.
func (t *Tx) QueryRow(ctx context.Context, op, stmt string, args []any, dest ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done || t.tx == nil {
		return ErrTxDone
	}
	err := t.tx.QueryRowContext(ctx, stmt, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err != nil {
		return t.fail(op, stmt, err)
	}
	return nil
}

// fail logs an engine error and wraps it. Caller holds t.mu.
func (t *Tx) fail(op, stmt string, err error) error {
	t.logger.Error("statement failed",
		"tx", t.id,
		"op", op,
		"statement", stmt,
		"error", err,
	)
	return &BackendError{Op: op, Statement: stmt, Err: err}
}

// start attaches the physical transaction once it has begun.
func (t *Tx) start(tx *sql.Tx) {
	t.mu.Lock()
	t.tx = tx
	t.mu.Unlock()
}

// finish stops further submissions.
func (t *Tx) finish() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
}
