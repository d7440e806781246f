package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document/codec"
	"github.com/ValentinKolb/petlaDB/lib/lockmgr"
)

// DefaultName is the database name used when Options.Name is empty
const DefaultName = "petla_db"

// Version is written to the metadata of new databases
const Version = "1.0.0"

// Options configures a Database
type Options struct {
	// Name is the namespace of all keys (default "petla_db")
	Name string

	// Codec encodes document blobs (default JSON). It must not change for an
	// existing database.
	Codec codec.IDocCodec

	// StrictOperators rejects unknown query operators and mixed condition documents
	// instead of falling back to equality.
	StrictOperators bool

	// Locker, if set, is used to hold the advisory lock {name}_lock during every
	// operation, so several processes can share one backend.
	Locker      lockmgr.ILockManager
	LockTimeout time.Duration // how long to wait for the lock (default 5s)
	LockLease   time.Duration // lease of a held lock (default 30s)

	// Now is the clock for timestamps (default time.Now)
	Now func() time.Time
}

// DefaultOptions returns the options used when nil is passed to New
func DefaultOptions() *Options {
	return &Options{
		Name:        DefaultName,
		Codec:       codec.NewJSONCodec(),
		LockTimeout: 5 * time.Second,
		LockLease:   30 * time.Second,
		Now:         time.Now,
	}
}

// IndexOptions are the options of an index declaration
type IndexOptions struct {
	// Unique allows at most one document per non-absent value
	Unique bool `json:"unique"`
	// Sparse excludes documents without the field from the index
	Sparse bool `json:"sparse"`
}

// IndexSpec is a declared index of a collection. In JSON it is written as the pair
// [field, {"unique": ..., "sparse": ...}].
type IndexSpec struct {
	Field   string
	Options IndexOptions
}

func (s IndexSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Field, s.Options})
}

func (s *IndexSpec) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("index spec must be a [field, options] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Field); err != nil {
		return fmt.Errorf("index field: %w", err)
	}
	s.Options = IndexOptions{}
	if string(pair[1]) == "null" {
		return nil
	}
	if err := json.Unmarshal(pair[1], &s.Options); err != nil {
		return fmt.Errorf("index options: %w", err)
	}
	return nil
}

// SortField is one key of a sort specification. Order is 1 (ascending) or -1 (descending).
type SortField struct {
	Field string
	Order int
}

// FindOptions control ordering and pagination of Find. Sort is applied first
// (stable, multi key), then Skip, then Limit (0 = no limit).
type FindOptions struct {
	Sort  []SortField
	Skip  int
	Limit int
}

// RestoreOptions control Restore
type RestoreOptions struct {
	// PreserveIDs keeps _id, createdAt and updatedAt of the snapshot documents
	// instead of assigning new ones.
	PreserveIDs bool
}
