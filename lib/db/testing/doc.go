// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - RunKVDBTests: a conformance suite for the KVDB contract (copy semantics,
//     conditional writes, enumeration, snapshots, concurrent access)
//   - RunKVDBBenchmarks: throughput benchmarks for the operations the document store uses
//
// Tests that need a feature an engine does not advertise are skipped.
//
// Example usage:
//
//	factory := func(t testing.TB) db.KVDB {
//		return NewMyDatabase(t.TempDir())
//	}
//
//	dbtesting.RunKVDBTests(t, "MyDatabase", factory)
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", factory)
package testing
