// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface and for the layers above them.
//
// The package contains:
//   - functions: Hash functions and seed generation used for shard selection
//   - statistics: Distribution statistics and a SizeHistogram for tracking value sizes
//   - snapshot: A versioned binary encoding of key-value entries shared by the engines' Save/Load
//   - format: Human-readable byte sizes
package util
