// Package db provides a standardized interface for key-value database implementations.
// It defines the KVDB interface that the persistence adapter (see the store package)
// builds on, so the document store never talks to a concrete backend directly.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Key enumeration (Range), which the document utilities need for storage accounting
//   - Standardized persistence operations (Save, Load)
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete), the conditional
//     write SetIfUnset used by the lock manager, enumeration (Range) and persistence
//     (Save, Load). Unlike an in-process map every method returns an error, because
//     file and network backed engines can fail.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     advertise through SupportsFeature. FeaturePersistent tells callers whether the
//     data survives a restart on its own or needs an explicit Save/Load.
//
//   - Database Information: DatabaseInfo reports size, key count, implementation type
//     and implementation-specific metadata. Sizes may be estimates.
//
// Implementations:
//
//   - engines/maple: sharded in-memory engine on xsync.MapOf with a binary snapshot format.
//   - engines/bolt: file-backed engine on bbolt, one bucket per database file.
//   - engines/redis: engine on a Redis server, keys namespaced by a prefix.
//
// The testing package (github.com/ValentinKolb/petlaDB/lib/db/testing) provides
// standardized tests and benchmarks every implementation runs:
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
