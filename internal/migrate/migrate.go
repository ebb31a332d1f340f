// Package migrate derives table DDL from a schema catalog and applies it.
//
// Creation is idempotent (CREATE TABLE IF NOT EXISTS) and never alters or
// drops existing columns: changing a store's indexes after its table exists
// has no effect on that table. The catalog version is only compared with the
// database's PRAGMA user_version to decide whether creation runs at all.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/txn"
)

// CreateTable returns the idempotent creation statement for one store:
// primary key column, index columns in declaration order, payload column.
func CreateTable(cat schema.Catalog, s *schema.Store) string {
	cols := make([]string, 0, len(s.Indexes)+2)
	if s.HasKeyPath() {
		cols = append(cols, cat.Quote(s.KeyPath)+" TEXT PRIMARY KEY")
	} else {
		cols = append(cols, cat.Quote(schema.KeyColumn)+" INTEGER PRIMARY KEY")
	}
	for _, idx := range s.Columns() {
		col := cat.Quote(idx.Name) + " " + idx.Affinity.SQLType()
		if idx.Unique {
			col += " UNIQUE"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", cat.Quote(s.Name), strings.Join(cols, ", "))
}

// Statements returns the creation statements for every store in catalog order.
func Statements(cat schema.Catalog) []string {
	stmts := make([]string, 0, len(cat.Stores()))
	for _, s := range cat.Stores() {
		stmts = append(stmts, CreateTable(cat, s))
	}
	return stmts
}

// Migrate runs every creation statement inside one transaction. A failing
// statement is logged and the rest still run; the first failure is returned
// once the transaction has committed. The catalog version is recorded only
// when every statement succeeded, so a partial migration is retried on the
// next open.
func Migrate(ctx context.Context, gw *txn.Gateway, cat schema.Catalog) error {
	logger := gw.Logger()
	logger.Info("migrating schema",
		"catalog", cat.Name(),
		"version", cat.Version(),
		"stores", len(cat.Stores()),
	)

	_, err := txn.Do(ctx, gw, txn.ReadWrite, func(ctx context.Context, tx *txn.Tx) (struct{}, error) {
		var first error
		for _, stmt := range Statements(cat) {
			if _, err := tx.Exec(ctx, "migrate", stmt); err != nil {
				if first == nil {
					first = err
				}
				continue
			}
			logger.Debug("table ready", "statement", stmt)
		}
		if first != nil {
			return struct{}{}, first
		}
		return struct{}{}, setVersion(ctx, tx, cat.Version())
	})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RecordedVersion returns the database's PRAGMA user_version.
func RecordedVersion(ctx context.Context, gw *txn.Gateway) (int, error) {
	return txn.Do(ctx, gw, txn.ReadOnly, func(ctx context.Context, tx *txn.Tx) (int, error) {
		var v int
		if err := tx.QueryRow(ctx, "version", "PRAGMA user_version", nil, &v); err != nil {
			return 0, fmt.Errorf("get user_version: %w", err)
		}
		return v, nil
	})
}

// EnsureCurrent migrates when the catalog version differs from the recorded
// one. It reports whether a migration ran.
func EnsureCurrent(ctx context.Context, gw *txn.Gateway, cat schema.Catalog) (bool, error) {
	recorded, err := RecordedVersion(ctx, gw)
	if err != nil {
		return false, err
	}
	if recorded == cat.Version() {
		gw.Logger().Debug("schema current", "version", recorded)
		return false, nil
	}
	gw.Logger().Info("schema version changed", "recorded", recorded, "requested", cat.Version())
	return true, Migrate(ctx, gw, cat)
}

// ResetVersion clears the recorded version so the next EnsureCurrent
// re-runs table creation. Used after tables are dropped.
func ResetVersion(ctx context.Context, tx *txn.Tx) error {
	return setVersion(ctx, tx, 0)
}

func setVersion(ctx context.Context, tx *txn.Tx, v int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := tx.Exec(ctx, "version", fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
