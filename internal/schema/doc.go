// Package schema describes the stores a database holds and how records map
// onto their tables.
//
// A Catalog is consumed, never mutated, by the rest of docsql. It answers:
//
//   - which stores exist, and their key strategy (declared key path or
//     surrogate integer key)
//   - which indexes each store mirrors into typed columns
//   - how identifiers are quoted in generated SQL
//   - how new primary keys are generated
//
// # Reserved columns
//
// Every table carries the payload column "_value" holding the full JSON
// record. Stores without a key path use "_key" as their INTEGER primary key.
// Neither name may be declared as an index or key path.
//
// # Schema files
//
// Registry values are usually built from a schema file via LoadFile, which
// accepts YAML and CUE:
//
//	name: notes
//	version: 1
//	stores:
//	  - name: note
//	    key_path: id
//	    indexes:
//	      - name: tag
//	        type: text
package schema
