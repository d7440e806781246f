package maple

import (
	"errors"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/petlaDB/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version (4 = string keys, no ttl)
)

// ErrClosed is returned by every operation after Close was called
var ErrClosed = errors.New("maple: database is closed")

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	numShards int
	seed      uint64

	// shardsMu is only write-locked while Load swaps the shards
	shardsMu sync.RWMutex
	shards   []*internal.Shard

	closed atomic.Bool
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = number of CPUs)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	return &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    newShards(opts.NumShards),
	}
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	return shards
}

// shard returns the shard responsible for key
func (maple *mapleImpl) shard(key string) *internal.Shard {
	return internal.GetShard(key, maple.seed, maple.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. The value is copied.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte) error {
	if maple.closed.Load() {
		return ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	maple.shard(key).Data.Store(key, copyBytes(value))
	return nil
}

// SetIfUnset stores the value only if the key does not exist yet.
//
// Thread-safety: This method is thread-safe, the check and the write are atomic.
func (maple *mapleImpl) SetIfUnset(key string, value []byte) (bool, error) {
	if maple.closed.Load() {
		return false, ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	_, loaded := maple.shard(key).Data.LoadOrStore(key, copyBytes(value))
	return !loaded, nil
}

// Delete removes an entry. The change is immediate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string) error {
	if maple.closed.Load() {
		return ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	maple.shard(key).Data.Delete(key)
	return nil
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a copy of the value for a key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool, error) {
	if maple.closed.Load() {
		return nil, false, ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	value, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return copyBytes(value), true, nil
}

// Has checks if a key exists in the database.
func (maple *mapleImpl) Has(key string) (bool, error) {
	if maple.closed.Load() {
		return false, ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	_, ok := maple.shard(key).Data.Load(key)
	return ok, nil
}

// Range iterates all shards. Entries written concurrently may or may not be visited.
func (maple *mapleImpl) Range(fn func(key string, value []byte) bool) error {
	if maple.closed.Load() {
		return ErrClosed
	}
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	for _, shard := range maple.shards {
		stop := false
		shard.Data.Range(func(key string, value []byte) bool {
			if !fn(key, copyBytes(value)) {
				stop = true
			}
			return !stop
		})
		if stop {
			return nil
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer.
// Concurrent writes are allowed during Save, the snapshot is fuzzy in that case.
// Entries are written sorted by key so equal databases produce equal files.
func (maple *mapleImpl) Save(w io.Writer) error {
	var entries []util.Entry
	if err := maple.Range(func(key string, value []byte) bool {
		entries = append(entries, util.Entry{Key: key, Value: value})
		return true
	}); err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return util.WriteSnapshot(w, magicNum, mapleVersion, entries)
}

// Load replaces the database content with a snapshot created by Save.
// On error the previous content is kept.
//
// Thread-safety: Load blocks all other operations while the shards are swapped.
func (maple *mapleImpl) Load(r io.Reader) error {
	if maple.closed.Load() {
		return ErrClosed
	}

	shards := newShards(maple.numShards)
	err := util.ReadSnapshot(r, magicNum, mapleVersion, func(e util.Entry) error {
		internal.GetShard(e.Key, maple.seed, shards).Data.Store(e.Key, e.Value)
		return nil
	})
	if err != nil {
		return err
	}

	maple.shardsMu.Lock()
	maple.shards = shards
	maple.shardsMu.Unlock()
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.shardsMu.RLock()
	defer maple.shardsMu.RUnlock()

	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(maple.shards))
	sizeBytes := 0

	for i, shard := range maple.shards {
		shard.Data.Range(func(key string, value []byte) bool {
			histogram.AddSample(len(value))
			return true
		})
		shardSizes[i] = float64(shard.Data.Size())
		sizeBytes += shard.Bytes()
	}

	meta := &struct {
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		MedianValueSize   int                    `json:"median_value_size"`
		AverageValueSize  int                    `json:"average_value_size"`
	}{
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		MedianValueSize:   histogram.MedianEstimate(),
		AverageValueSize:  histogram.AverageSize(),
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Keys:      int(histogram.Count()),
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIfUnset,
			db.FeatureGet, db.FeatureHas, db.FeatureDelete,
			db.FeatureRange,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIfUnset |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureRange |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close marks the database as closed, all later calls fail with ErrClosed
func (maple *mapleImpl) Close() error {
	maple.closed.Store(true)
	return nil
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
