package dbutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/db/util"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("dbutil")

// DefaultTotal is the storage ceiling reported when neither Options nor the store define one
const DefaultTotal int64 = 5 * 1024 * 1024

// tempPrefixes mark keys that OptimizeStorage may delete
var tempPrefixes = []string{"temp_", "cache_", "preview_", "draft_", "old_", "test_"}

// Options configures Utils
type Options struct {
	// Total is the storage ceiling in bytes. If 0 the quota of the store is used,
	// or DefaultTotal if the store has none.
	Total int64
	// Now is the clock used for backup file names (default time.Now)
	Now func() time.Time
}

// Utils bundles maintenance operations of a database
type Utils struct {
	db    *docstore.Database
	st    store.IStore
	total int64
	now   func() time.Time
}

// quotaStore is implemented by stores that account their usage (lstore)
type quotaStore interface {
	Used() int64
	Quota() int64
}

// New creates the utilities for a database. A nil opts uses the defaults.
func New(database *docstore.Database, opts *Options) *Utils {
	if opts == nil {
		opts = &Options{}
	}
	u := &Utils{
		db:    database,
		st:    database.Store(),
		total: opts.Total,
		now:   opts.Now,
	}
	if u.total <= 0 {
		u.total = DefaultTotal
		if qs, ok := u.st.(quotaStore); ok && qs.Quota() > 0 {
			u.total = qs.Quota()
		}
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u
}

// FormatBytes renders a byte count with 1024 based units, e.g. 1536 -> "1.5 KB"
func FormatBytes(bytes int64) string {
	return util.FormatBytes(bytes)
}

// --------------------------------------------------------------------------
// Storage
// --------------------------------------------------------------------------

// StorageInfo describes how much of the storage ceiling is used
type StorageInfo struct {
	Used          int64   `json:"used"`
	Total         int64   `json:"total"`
	Percentage    float64 `json:"percentage"`
	HumanReadable struct {
		Used  string `json:"used"`
		Total string `json:"total"`
	} `json:"humanReadable"`
}

// GetStorageInfo sums len(key)+len(value) over all keys of the store
func (u *Utils) GetStorageInfo() (StorageInfo, error) {
	used, err := u.usedBytes()
	if err != nil {
		return StorageInfo{}, err
	}
	info := StorageInfo{
		Used:       used,
		Total:      u.total,
		Percentage: float64(used) / float64(u.total) * 100,
	}
	info.HumanReadable.Used = FormatBytes(used)
	info.HumanReadable.Total = FormatBytes(u.total)
	return info, nil
}

func (u *Utils) usedBytes() (int64, error) {
	if qs, ok := u.st.(quotaStore); ok {
		return qs.Used(), nil
	}
	keys, err := u.st.Keys()
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}
	var used int64
	for _, key := range keys {
		value, found, err := u.st.Get(key)
		if err != nil {
			return 0, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		if found {
			used += int64(len(key) + len(value))
		}
	}
	return used, nil
}

// OptimizeResult reports what OptimizeStorage removed
type OptimizeResult struct {
	Cleaned int64  `json:"cleaned"`
	Message string `json:"message"`
}

// OptimizeStorage deletes temporary keys (prefixes temp_, cache_, preview_, draft_,
// old_ and test_) and reports the bytes freed. Keys of the database itself are never
// touched, even when the database name starts with one of the prefixes.
func (u *Utils) OptimizeStorage() (OptimizeResult, error) {
	keys, err := u.st.Keys()
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("failed to list keys: %w", err)
	}

	var cleaned int64
	for _, key := range keys {
		if !isTemporary(key) || strings.HasPrefix(key, u.db.Name()+"_") {
			continue
		}
		value, found, err := u.st.Get(key)
		if err != nil {
			return OptimizeResult{}, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		if !found {
			continue
		}
		if err := u.st.Delete(key); err != nil {
			return OptimizeResult{}, fmt.Errorf("failed to delete key %s: %w", key, err)
		}
		cleaned += int64(len(key) + len(value))
		log.Debugf("removed temporary key %s", key)
	}

	result := OptimizeResult{Cleaned: cleaned, Message: "No temporary data found to clean"}
	if cleaned > 0 {
		result.Message = fmt.Sprintf("Cleaned %s of temporary data", FormatBytes(cleaned))
	}
	log.Infof("optimize: %s", result.Message)
	return result, nil
}

func isTemporary(key string) bool {
	for _, prefix := range tempPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
