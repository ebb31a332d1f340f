// Package harness runs conformance scenarios against a docsql store.
//
// A scenario is a YAML file holding an inline schema, a flow of store
// operations with optional expectations, and assertions over the final
// state. Each run uses a fresh in-memory database and sequence keys
// ("<key_prefix>1", "<key_prefix>2", ...), so traces are deterministic and
// can be compared against golden files with RunWithGolden.
//
// Flow steps:
//
//   - put: write records (or one record under key)
//   - get: read one key
//   - delete: delete one key
//   - count: count a store
//   - query: scan with from/to/limit/offset/where
//   - clear: clear one store, or every store when store is empty
//   - batch: run nested put/get/delete steps in one scoped transaction;
//     fail makes the batch callback return an error after its steps
//
// Expectations compare numbers by value, so YAML integers match the
// floats that come back from JSON payloads.
package harness
