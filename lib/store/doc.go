// Package store provides the persistence adapter the document store is built on:
// a synchronous, string-keyed byte store with key enumeration, a storage quota and
// unified error reporting. It is an abstraction layer over the lower-level db.KVDB
// engines.
//
// Key Components:
//
//   - IStore Interface: Get, Set, SetIfUnset, Delete, Has, Keys and GetDBInfo. All
//     implementations share this interface, so the document store can switch engines
//     (in-memory, bbolt file, Redis) without code changes.
//
//   - Error System: *Error carries a RetCode (internal error, unsupported operation,
//     invalid operation, quota exceeded) and a message. Callers branch on the code,
//     e.g. with IsQuotaExceeded, instead of parsing messages.
//
//   - DBFactory: A function that creates the underlying db.KVDB, so the store does
//     not depend on a concrete engine.
//
// Implementations:
//
//	Local Store (lstore): wraps one db.KVDB and enforces a byte quota on the sum of
//	len(key)+len(value) over all keys (default 5 MiB). Available in the
//	"github.com/ValentinKolb/petlaDB/lib/store/lstore" package.
//
// There is no multi-key atomicity. Callers that write several keys for one logical
// operation (the document store does) order their writes and compensate on failure.
package store
