package txn

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/testutil"
)

// createTestGateway opens a single-connection SQLite database with one
// table "item(n INTEGER PRIMARY KEY)".
func createTestGateway(t *testing.T) (*Gateway, *sql.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	_, err := db.Exec("CREATE TABLE item (n INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	return NewGateway(db, testutil.Logger()), db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM item").Scan(&n))
	return n
}

func insert(ctx context.Context, tx *Tx, n int) error {
	_, err := tx.Exec(ctx, "insert", "INSERT INTO item (n) VALUES (?)", n)
	return err
}
