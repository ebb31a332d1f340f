// Package query compiles query descriptors to SQL and runs the client-side
// scan over the fetched rows.
//
// Only the primary-key range reaches SQLite, as a WHERE clause with bound
// parameters. Ordering, limit and offset are never pushed down; they are
// applied while scanning, in fetch order:
//
//  1. the first Offset fetched rows are skipped undecoded
//  2. the fetch stops once Limit rows have been read (0 means no limit)
//  3. the statement is finished, then each row is decoded and Continue is
//     evaluated; false stops the scan
//  4. Filter decides whether the row contributes to the result
//  5. Map transforms it, then it is appended, or folded by Reduce
//
// Rows rejected by Filter still count toward Limit, and Continue sees them.
// Scan boundaries are independent of result membership.
//
// Key path columns are TEXT, so ranges over them compare as text: "10" sorts
// before "9". Surrogate keys compare as integers.
package query
