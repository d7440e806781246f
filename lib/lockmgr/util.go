package lockmgr

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	ownerIDLength = 16 // uuid
	deadlineSize  = 8  // unix nano, big endian
)

var errMalformedLock = errors.New("lockmgr: malformed lock value")

// generateOwnerID creates a new unique owner ID (a random UUID)
func generateOwnerID() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return id[:], nil
}

// encodeLock builds the stored value: owner ID followed by the lease deadline.
// A zero deadline means the lock never expires.
func encodeLock(ownerID []byte, deadline time.Time) []byte {
	value := make([]byte, ownerIDLength+deadlineSize)
	copy(value, ownerID)
	if !deadline.IsZero() {
		binary.BigEndian.PutUint64(value[ownerIDLength:], uint64(deadline.UnixNano()))
	}
	return value
}

// decodeLock is the inverse of encodeLock
func decodeLock(value []byte) (ownerID []byte, deadline time.Time, err error) {
	if len(value) != ownerIDLength+deadlineSize {
		return nil, time.Time{}, errMalformedLock
	}
	if nanos := binary.BigEndian.Uint64(value[ownerIDLength:]); nanos != 0 {
		deadline = time.Unix(0, int64(nanos))
	}
	return value[:ownerIDLength], deadline, nil
}
