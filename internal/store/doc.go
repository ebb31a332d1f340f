// Package store is the public face of the mapper: it opens a SQLite database
// for a schema catalog and exposes the record-level operations.
//
// Every operation runs in its own physical transaction obtained from the
// transaction gateway. Batched writes apply each statement in order; a
// failing statement marks the call failed but statements that already ran
// stay applied, since nothing is rolled back.
//
// # Scoped transactions
//
// RunInTransaction binds caller-owned tokens to one physical transaction.
// Inside the callback, the InTransaction methods resolve the token to that
// transaction. The plain methods open their own transaction and must not be
// called from inside the callback: the pool holds a single connection.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Config.BusyTimeout (default 5s)
//   - One open connection: the backend serializes transactions
package store
