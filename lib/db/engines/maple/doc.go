// Package maple implements an in-memory key-value database (KVDB) with sharded,
// mostly lock-free storage. It is the default backend for tests and for short-lived
// sessions that persist through explicit snapshots (Save/Load).
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. It owns the shards and
//     routes every key to exactly one of them.
//
//   - Shard: A partition of the key space backed by an xsync.MapOf. Keys are assigned
//     to shards with a seeded FNV-1a hash (right-shifted by 7 bits to use the
//     higher-quality bits), so writes to different keys rarely contend.
//
// Persistence Format:
//
//	Save writes the shared snapshot format of the util package with the magic number
//	"MAPLEDB\x00" and version 4:
//	1. Magic number
//	2. Version
//	3. Number of entries
//	4. For each entry (sorted by key): key length, key, value length, value
//	The snapshot is fuzzy if writes happen concurrently. Load parses the whole snapshot
//	into fresh shards before swapping them in, so a broken file leaves the database
//	untouched.
//
// Conditional Writes:
//
//	SetIfUnset maps to xsync's LoadOrStore and is atomic per key. The lock manager
//	builds its advisory locks on it.
//
// Maple data is not persistent on its own (no db.FeaturePersistent). Callers that
// need the data to survive a restart either Save it themselves or use the bolt engine.
package maple
