package lockmgr

import (
	"bytes"
	"errors"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lockmgr")

// ErrLockTimeout is returned by WaitLock if the lock stayed taken
var ErrLockTimeout = errors.New("lockmgr: timed out waiting for lock")

// retryInterval is the pause between two attempts of WaitLock
const retryInterval = 10 * time.Millisecond

type lockMgrImpl struct {
	store store.IStore
	now   func() time.Time
}

// NewLockManager creates a lock manager on the store. It keeps no state of its own,
// any number of managers (in any number of processes) can share the same store.
func NewLockManager(store store.IStore) ILockManager {
	return &lockMgrImpl{
		store: store,
		now:   time.Now,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, lease time.Duration) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	var deadline time.Time
	if lease > 0 {
		deadline = lm.now().Add(lease)
	}
	value := encodeLock(ownerID, deadline)

	// atomic CAS: only one requester can create the key
	ok, err := lm.store.SetIfUnset(key, value)
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, ownerID, nil
	}

	// the lock is taken, break it if its lease ran out
	current, found, err := lm.store.Get(key)
	if err != nil {
		return false, nil, err
	}
	if found {
		_, expiresAt, err := decodeLock(current)
		if err == nil && (expiresAt.IsZero() || lm.now().Before(expiresAt)) {
			return false, nil, nil
		}
		log.Warningf("breaking expired or malformed lock %s", key)
		if err := lm.store.Delete(key); err != nil {
			return false, nil, err
		}
	}

	ok, err = lm.store.SetIfUnset(key, value)
	if err != nil || !ok {
		return false, nil, err
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) WaitLock(key string, lease, wait time.Duration) ([]byte, error) {
	giveUp := lm.now().Add(wait)
	for {
		ok, ownerID, err := lm.AcquireLock(key, lease)
		if err != nil {
			return nil, err
		}
		if ok {
			return ownerID, nil
		}
		if !lm.now().Before(giveUp) {
			return nil, ErrLockTimeout
		}
		time.Sleep(retryInterval)
	}
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	value, ok, err := lm.store.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}

	// only the owner may release the lock
	holder, _, err := decodeLock(value)
	if err != nil || !bytes.Equal(ownerID, holder) {
		return false, nil
	}

	err = lm.store.Delete(key)
	return err == nil, err
}
