package lockmgr

import "time"

// ILockManager defines the interface for an advisory lock provider.
type ILockManager interface {
	// AcquireLock tries once to acquire the lock for key. The lock expires after lease
	// (0 = never). Return a boolean indicating whether the lock was acquired, the owner ID
	// needed to release it, and an error if any.
	AcquireLock(key string, lease time.Duration) (ok bool, ownerID []byte, err error)

	// WaitLock retries AcquireLock until it succeeds or wait has passed.
	// It returns ErrLockTimeout if the lock could not be acquired in time.
	WaitLock(key string, lease, wait time.Duration) (ownerID []byte, err error)

	// ReleaseLock releases the lock for the given key.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method also returns true if the lock did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)
}
