package bolt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/util"
	bbolt "go.etcd.io/bbolt"
)

const (
	magicNum    = "BOLTKV\x00\x00" // File format identifier of Save/Load snapshots
	boltVersion = 1
)

var bucketName = []byte("kv")

// ErrClosed is returned by every operation after Close was called
var ErrClosed = errors.New("bolt: database is closed")

// DBOptions configures the bolt engine
type DBOptions struct {
	Path    string        // Database file, created if missing
	Timeout time.Duration // How long to wait for the file lock (0 = 1s)
	NoSync  bool          // Skip fsync after each commit (faster, unsafe on crash)
}

// boltImpl implements db.KVDB on a single bbolt bucket
type boltImpl struct {
	path string
	bolt *bbolt.DB
}

// NewBoltDB opens (or creates) the database file at opts.Path
func NewBoltDB(opts DBOptions) (db.KVDB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("bolt: no database path given")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt: create directory: %w", err)
		}
	}

	handle, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{Timeout: opts.Timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", opts.Path, err)
	}

	if err := handle.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	return &boltImpl{path: opts.Path, bolt: handle}, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (b *boltImpl) update(fn func(bucket *bbolt.Bucket) error) error {
	if b.bolt == nil {
		return ErrClosed
	}
	return b.bolt.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

func (b *boltImpl) view(fn func(bucket *bbolt.Bucket) error) error {
	if b.bolt == nil {
		return ErrClosed
	}
	return b.bolt.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

// Set inserts or updates an entry. Each call is its own transaction.
func (b *boltImpl) Set(key string, value []byte) error {
	return b.update(func(bucket *bbolt.Bucket) error {
		// bbolt rejects nil values
		if value == nil {
			value = []byte{}
		}
		return bucket.Put([]byte(key), value)
	})
}

// SetIfUnset writes the value only if the key is missing. The check and the write
// share one transaction, bbolt serializes writers so this is atomic.
func (b *boltImpl) SetIfUnset(key string, value []byte) (bool, error) {
	written := false
	err := b.update(func(bucket *bbolt.Bucket) error {
		if bucket.Get([]byte(key)) != nil {
			return nil
		}
		if value == nil {
			value = []byte{}
		}
		written = true
		return bucket.Put([]byte(key), value)
	})
	return written, err
}

// Delete removes an entry, missing keys are ignored
func (b *boltImpl) Delete(key string) error {
	return b.update(func(bucket *bbolt.Bucket) error {
		return bucket.Delete([]byte(key))
	})
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns a copy of the value, bbolt memory is only valid inside the transaction
func (b *boltImpl) Get(key string) ([]byte, bool, error) {
	var value []byte
	found := false
	err := b.view(func(bucket *bbolt.Bucket) error {
		if v := bucket.Get([]byte(key)); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (b *boltImpl) Has(key string) (bool, error) {
	found := false
	err := b.view(func(bucket *bbolt.Bucket) error {
		found = bucket.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Range visits the entries in key order inside a single read transaction
func (b *boltImpl) Range(fn func(key string, value []byte) bool) error {
	return b.view(func(bucket *bbolt.Bucket) error {
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			value := make([]byte, len(v))
			copy(value, v)
			if !fn(string(k), value) {
				return nil
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a consistent snapshot of the bucket (one read transaction)
func (b *boltImpl) Save(w io.Writer) error {
	var entries []util.Entry
	if err := b.Range(func(key string, value []byte) bool {
		entries = append(entries, util.Entry{Key: key, Value: value})
		return true
	}); err != nil {
		return err
	}
	return util.WriteSnapshot(w, magicNum, boltVersion, entries)
}

// Load replaces the bucket content with the snapshot. The whole load is one
// write transaction, a broken snapshot rolls back and keeps the old content.
func (b *boltImpl) Load(r io.Reader) error {
	if b.bolt == nil {
		return ErrClosed
	}
	return b.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(bucketName)
		if err != nil {
			return err
		}
		return util.ReadSnapshot(r, magicNum, boltVersion, func(e util.Entry) error {
			return bucket.Put([]byte(e.Key), e.Value)
		})
	})
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (b *boltImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	sizeBytes := 0
	var fileSize int64
	var stats bbolt.BucketStats

	_ = b.view(func(bucket *bbolt.Bucket) error {
		stats = bucket.Stats()
		fileSize = bucket.Tx().Size()
		return bucket.ForEach(func(k, v []byte) error {
			histogram.AddSample(len(v))
			sizeBytes += len(k) + len(v)
			return nil
		})
	})

	meta := &struct {
		Path             string `json:"path"`
		FileSizeBytes    int64  `json:"file_size_bytes"`
		LeafPages        int    `json:"leaf_pages"`
		BranchPages      int    `json:"branch_pages"`
		TreeDepth        int    `json:"tree_depth"`
		MedianValueSize  int    `json:"median_value_size"`
		AverageValueSize int    `json:"average_value_size"`
	}{
		Path:             b.path,
		FileSizeBytes:    fileSize,
		LeafPages:        stats.LeafPageN,
		BranchPages:      stats.BranchPageN,
		TreeDepth:        stats.Depth,
		MedianValueSize:  histogram.MedianEstimate(),
		AverageValueSize: histogram.AverageSize(),
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Keys:      int(histogram.Count()),
		DbType:    db.ImplBolt,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIfUnset,
			db.FeatureGet, db.FeatureHas, db.FeatureDelete,
			db.FeatureRange,
			db.FeatureSave, db.FeatureLoad,
			db.FeaturePersistent,
		},
		Metadata: meta,
	}
}

func (b *boltImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIfUnset |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureRange |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeaturePersistent
	return supportedFeatures&feature == feature
}

// Close releases the file lock. Calling Close twice is a no-op.
func (b *boltImpl) Close() error {
	if b.bolt == nil {
		return nil
	}
	err := b.bolt.Close()
	b.bolt = nil
	return err
}
