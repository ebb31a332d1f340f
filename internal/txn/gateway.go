package txn

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Operation is the work run inside one physical transaction.
type Operation[T any] func(ctx context.Context, tx *Tx) (T, error)

// Gateway hands out physical transactions on a database handle.
type Gateway struct {
	db     *sql.DB
	logger *slog.Logger
	nextID atomic.Uint64
}

// NewGateway creates a Gateway. A nil logger discards output.
func NewGateway(db *sql.DB, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{db: db, logger: logger}
}

// Logger returns the gateway's logger.
func (g *Gateway) Logger() *slog.Logger {
	return g.logger
}

// Open runs op in a new physical transaction and returns its Future.
func Open[T any](ctx context.Context, g *Gateway, mode Mode, op Operation[T]) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.settle(run(ctx, g, mode, op, nil))
	}()
	return f
}

// RunInTransaction runs fn in a new physical transaction bound to every
// token. The tokens are unbound before the returned Future settles, whether
// fn succeeds, fails or panics. If any token is already bound the call
// rejects with ErrScopeViolation and fn does not run.
func RunInTransaction[T any](ctx context.Context, g *Gateway, mode Mode, fn Operation[T], tokens ...*Token) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.settle(run(ctx, g, mode, fn, tokens))
	}()
	return f
}

// Do is Open followed by Await on the same context.
func Do[T any](ctx context.Context, g *Gateway, mode Mode, op Operation[T]) (T, error) {
	return Open(ctx, g, mode, op).Await(ctx)
}

func run[T any](ctx context.Context, g *Gateway, mode Mode, op Operation[T], tokens []*Token) (result T, err error) {
	tx := &Tx{id: g.nextID.Add(1), mode: mode, logger: g.logger}

	var sqlTx *sql.Tx
	committed := false
	bound := make([]*Token, 0, len(tokens))
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = fmt.Errorf("transaction %d: operation panicked: %v", tx.id, r)
			g.logger.Error("operation panicked", "tx", tx.id, "panic", r)
		}
		tx.finish()
		if sqlTx != nil && !committed {
			_ = sqlTx.Rollback()
		}
		for _, k := range bound {
			k.unbind(tx)
		}
	}()

	// Tokens are claimed before a connection is requested, so a token that
	// is already in use fails fast instead of waiting on the pool.
	for _, k := range tokens {
		if err := k.bind(tx); err != nil {
			return result, err
		}
		bound = append(bound, k)
	}

	sqlTx, err = g.db.BeginTx(ctx, nil)
	if err != nil {
		g.logger.Error("begin transaction failed", "tx", tx.id, "error", err)
		return result, &BackendError{Op: "begin", Err: err}
	}
	tx.start(sqlTx)
	g.logger.Debug("transaction started", "tx", tx.id, "mode", mode.String(), "tokens", len(tokens))

	result, err = op(ctx, tx)
	tx.finish()

	// Statements that already ran stay applied even when op failed.
	if cerr := sqlTx.Commit(); cerr != nil {
		g.logger.Error("commit failed", "tx", tx.id, "error", cerr)
		if err == nil {
			err = &BackendError{Op: "commit", Err: cerr}
		}
		return result, err
	}
	committed = true
	g.logger.Debug("transaction committed", "tx", tx.id, "failed", err != nil)
	return result, err
}
