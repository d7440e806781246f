// Package bolt implements a file-backed key-value database (KVDB) on top of bbolt.
//
// All entries live in a single bucket of one database file. Every write is its own
// transaction, so a crash never leaves a half written value behind, and the data
// survives a restart without an explicit Save (db.FeaturePersistent).
//
// Conditional Writes:
//
//	SetIfUnset checks and writes inside one read-write transaction. bbolt allows a
//	single writer at a time, which makes the operation atomic across goroutines.
//
// Persistence Format:
//
//	Save and Load use the snapshot format of the util package with the magic number
//	"BOLTKV\x00\x00". Load runs in one transaction and rolls back on a broken snapshot.
//
// The file is locked while the database is open, a second process opening the same
// path waits for DBOptions.Timeout and then fails.
package bolt
