// Package txn opens physical SQLite transactions and exposes each logical
// operation as a Future.
//
// # Gateway
//
// Open begins one transaction, runs an operation against it on its own
// goroutine, commits, and settles the returned Future. Statements submitted
// through a Tx execute in submission order. Nothing orders separate Open
// calls beyond what the connection pool imposes (docsql runs a single
// connection, so transactions are serialized by the pool).
//
// A failed statement does not roll back statements that already ran in the
// same transaction: the transaction still commits and the Future rejects
// with the first error. Only a panic inside the operation rolls back.
//
// # Scoped transactions
//
// RunInTransaction binds one transaction to a set of caller-owned Tokens so
// several key-addressed calls share it:
//
//	a, b := txn.NewToken("a"), txn.NewToken("b")
//	f := txn.RunInTransaction(ctx, gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) (struct{}, error) {
//	    // calls taking a or b resolve tx through Token.Tx
//	    return struct{}{}, nil
//	}, a, b)
//
// The binding is released by a deferred finalizer before the Future settles,
// on success, error and panic alike. Resolving an unbound Token fails with
// ErrScopeViolation.
package txn
