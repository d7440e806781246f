package lstore

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

// DefaultQuota is the storage ceiling of a local store (5 MiB)
const DefaultQuota int64 = 5 * 1024 * 1024

var (
	quotaRejections = metrics.NewCounter(`petladb_store_quota_rejections_total`)
	storeWrites     = metrics.NewCounter(`petladb_store_writes_total`)
	storeReads      = metrics.NewCounter(`petladb_store_reads_total`)
)

// Options configures a local store
type Options struct {
	// Quota is the maximum of len(key)+len(value) summed over all keys.
	// 0 disables the check.
	Quota int64
}

// DefaultOptions returns the options used when nil is passed to NewLocalStore
func DefaultOptions() *Options {
	return &Options{Quota: DefaultQuota}
}

// LocalStore is the store.IStore returned by NewLocalStore with its quota accounting exposed
type LocalStore interface {
	store.IStore
	// Used returns the number of bytes currently accounted against the quota
	Used() int64
	// Quota returns the configured quota (0 = unlimited)
	Quota() int64
	// DB returns the underlying database, e.g. to Save or Close it
	DB() db.KVDB
}

type storeImpl struct {
	db    db.KVDB
	quota int64

	// writeMu serializes writes so the usage counter matches the database
	writeMu sync.Mutex
	used    atomic.Int64
}

// NewLocalStore creates a new local store instance on the database returned by factory.
// The current usage is computed once from the existing content, so a persistent engine
// that already holds data starts with the right accounting.
func NewLocalStore(factory store.DBFactory, opts *Options) (LocalStore, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	database, err := factory()
	if err != nil {
		return nil, err
	}

	s := &storeImpl{
		db:    database,
		quota: opts.Quota,
	}

	if database.SupportsFeature(db.FeatureRange) {
		var used int64
		if err := database.Range(func(key string, value []byte) bool {
			used += int64(len(key) + len(value))
			return true
		}); err != nil {
			return nil, fmt.Errorf("lstore: compute usage: %w", err)
		}
		s.used.Store(used)
	}

	return s, nil
}

func (s *storeImpl) Used() int64 {
	return s.used.Load()
}

func (s *storeImpl) Quota() int64 {
	return s.quota
}

func (s *storeImpl) DB() db.KVDB {
	return s.db
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func internalError(op string, err error) error {
	return store.NewError(store.RetCInternalError, fmt.Sprintf("%s failed: %v", op, err))
}

func unsupported(op string) error {
	return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
}

// sizeOf returns the accounted size of key, 0 if the key is missing
func (s *storeImpl) sizeOf(key string) (int64, bool, error) {
	old, ok, err := s.db.Get(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int64(len(key) + len(old)), true, nil
}

// checkQuota returns a quota error if adding delta bytes would exceed the quota.
// Writes that shrink the usage are always allowed.
func (s *storeImpl) checkQuota(key string, delta int64) error {
	if s.quota <= 0 || delta <= 0 {
		return nil
	}
	if used := s.used.Load(); used+delta > s.quota {
		quotaRejections.Inc()
		return store.NewError(store.RetCQuotaExceeded, fmt.Sprintf(
			"writing %s needs %d more bytes, %d of %d bytes used", key, delta, used, s.quota))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSet | db.FeatureGet) {
		return unsupported("Set")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	oldSize, _, err := s.sizeOf(key)
	if err != nil {
		return internalError("Set", err)
	}
	delta := int64(len(key)+len(value)) - oldSize
	if err := s.checkQuota(key, delta); err != nil {
		return err
	}

	if err := s.db.Set(key, value); err != nil {
		return internalError("Set", err)
	}
	s.used.Add(delta)
	storeWrites.Inc()
	return nil
}

func (s *storeImpl) SetIfUnset(key string, value []byte) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureSetIfUnset) {
		return false, unsupported("SetIfUnset")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	delta := int64(len(key) + len(value))
	if err := s.checkQuota(key, delta); err != nil {
		return false, err
	}

	ok, err := s.db.SetIfUnset(key, value)
	if err != nil {
		return false, internalError("SetIfUnset", err)
	}
	if ok {
		s.used.Add(delta)
		storeWrites.Inc()
	}
	return ok, nil
}

func (s *storeImpl) Delete(key string) error {
	if !s.db.SupportsFeature(db.FeatureDelete | db.FeatureGet) {
		return unsupported("Delete")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	oldSize, exists, err := s.sizeOf(key)
	if err != nil {
		return internalError("Delete", err)
	}
	if !exists {
		return nil
	}
	if err := s.db.Delete(key); err != nil {
		return internalError("Delete", err)
	}
	s.used.Add(-oldSize)
	storeWrites.Inc()
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, unsupported("Get")
	}
	storeReads.Inc()
	val, ok, err := s.db.Get(key)
	if err != nil {
		return nil, false, internalError("Get", err)
	}
	return val, ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, unsupported("Has")
	}
	ok, err := s.db.Has(key)
	if err != nil {
		return false, internalError("Has", err)
	}
	return ok, nil
}

func (s *storeImpl) Keys() ([]string, error) {
	if !s.db.SupportsFeature(db.FeatureRange) {
		return nil, unsupported("Keys")
	}
	var keys []string
	if err := s.db.Range(func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, internalError("Keys", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}
