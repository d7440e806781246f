package internal

import (
	"github.com/ValentinKolb/petlaDB/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database.
// Each shard has its own concurrent map, so writes to different shards never contend.
type Shard struct {
	Data *xsync.MapOf[string, []byte] // Map of key-value entries
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, []byte](),
	}
}

// Bytes returns the number of bytes held by the shard (keys and values)
func (s *Shard) Bytes() int {
	total := 0
	s.Data.Range(func(key string, value []byte) bool {
		total += len(key) + len(value)
		return true
	})
	return total
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key string, seed uint64, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := util.HashString(key, seed) >> 7
	return shards[shiftedKey%uint64(len(shards))]
}
