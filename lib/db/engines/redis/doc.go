// Package redis implements a key-value database (KVDB) on a Redis server using go-redis.
//
// Every key is stored as prefix+key, so several petlaDB databases (or other
// applications) can share one server. Range enumerates the namespace with SCAN and
// fetches values with MGET in batches.
//
// SetIfUnset maps to SETNX. Load parses the whole snapshot before it replaces the
// namespace inside a MULTI/EXEC transaction, so a broken snapshot changes nothing.
//
// Each call uses its own context with DBOptions.Timeout.
package redis
