// Package dbutil provides maintenance operations around a docstore.Database:
// storage accounting, integrity checks, removal of temporary keys, migration of the
// legacy one-array-per-key format, backup files and demo data.
//
// Storage usage is the sum of len(key)+len(value) over all keys of the store, the
// same figure the quota of lstore enforces. Backup files are written atomically
// (write to a temp file, then rename) and read leniently: comments and trailing
// commas are stripped before the JSON is restored.
//
// Demo users get their passwords stored as argon2id hashes (see HashPassword).
package dbutil
