// Package lockmgr implements advisory locks on top of any store.IStore. The document
// store uses it to exclude other processes that share the same backend (for example
// one Redis server) for the duration of an operation.
//
// The lock manager only stores in the provided IStore and has no other internal
// state. It is safe to create it multiple times on the same store.
//
// Implementation Approach:
//
//   - Lock Acquisition: SetIfUnset creates the lock key, which guarantees that only one
//     requester succeeds. The value holds a random owner ID (UUID) followed by the lease
//     deadline.
//
//   - Leases: A lock acquired with a lease expires at its deadline. A requester that
//     finds an expired (or unreadable) lock deletes it and tries again once, so a crashed
//     holder does not block the store forever.
//
//   - Safe Release: ReleaseLock compares the stored owner ID with the caller's before it
//     deletes the key.
//
// Limitations:
//
//	The locks are advisory. Breaking an expired lock is a Get followed by a Delete, two
//	requesters that break the same expired lock concurrently may both succeed. Clocks of
//	all participating processes are assumed to be roughly in sync.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(st)
//
//	ownerID, err := locks.WaitLock("petla_db_lock", 30*time.Second, 5*time.Second)
//	if err != nil {
//	    // lockmgr.ErrLockTimeout or a store error
//	}
//	defer locks.ReleaseLock("petla_db_lock", ownerID)
package lockmgr
