package docstore

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/ValentinKolb/petlaDB/lib/document/codec"
	"github.com/ValentinKolb/petlaDB/lib/lockmgr"
	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("docstore")

// Database is a document database on top of a store.IStore.
// All public methods are safe for concurrent use; they are serialized by one mutex.
type Database struct {
	mu sync.Mutex

	st     store.IStore
	name   string
	codec  codec.IDocCodec
	strict bool

	locker      lockmgr.ILockManager
	lockTimeout time.Duration
	lockLease   time.Duration

	now func() time.Time
}

// New opens the database opts.Name on the store, creating its metadata if it does not exist.
// A nil opts uses DefaultOptions.
func New(st store.IStore, opts *Options) (*Database, error) {
	if st == nil {
		return nil, newError(CodeInvalidArgument, "store must not be nil")
	}

	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}

	d := &Database{
		st:          st,
		name:        opts.Name,
		codec:       opts.Codec,
		strict:      opts.StrictOperators,
		locker:      opts.Locker,
		lockTimeout: opts.LockTimeout,
		lockLease:   opts.LockLease,
		now:         opts.Now,
	}
	if d.name == "" {
		d.name = defaults.Name
	}
	if d.codec == nil {
		d.codec = defaults.Codec
	}
	if d.lockTimeout <= 0 {
		d.lockTimeout = defaults.LockTimeout
	}
	if d.lockLease <= 0 {
		d.lockLease = defaults.LockLease
	}
	if d.now == nil {
		d.now = defaults.Now
	}

	err := d.run("open", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		log.Infof("opened database %s (version %s, %d collections, codec %s)",
			d.name, m.Version, len(m.Collections), d.codec.Name())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Name returns the database name
func (d *Database) Name() string {
	return d.name
}

// Store returns the persistence adapter of the database
func (d *Database) Store() store.IStore {
	return d.st
}

// run executes fn under the database mutex (and the advisory lock, if configured)
// and records the operation metrics
func (d *Database) run(op string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		recordOperation(op, start, err)
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locker != nil {
		ownerID, err := d.locker.WaitLock(d.lockKey(), d.lockLease, d.lockTimeout)
		if err != nil {
			return storageError(err, "acquire lock %s", d.lockKey())
		}
		defer func() {
			if _, err := d.locker.ReleaseLock(d.lockKey(), ownerID); err != nil {
				log.Warningf("failed to release lock %s: %v", d.lockKey(), err)
			}
		}()
	}

	return fn()
}

// timestamp returns the current time in UTC, truncated to milliseconds
func (d *Database) timestamp() time.Time {
	return d.now().UTC().Truncate(time.Millisecond)
}

// normalize passes doc through the codec, so index keys and unique checks see the
// values that are actually stored (e.g. dates at codec precision, NaN as null in JSON)
func (d *Database) normalize(doc document.Document) (document.Document, error) {
	data, err := d.codec.Encode(doc)
	if err != nil {
		return document.Document{}, &Error{Code: CodeInvalidArgument, Msg: "encode document", Err: err}
	}
	stored, err := d.codec.Decode(data)
	if err != nil {
		return document.Document{}, &Error{Code: CodeInvalidArgument, Msg: "decode document", Err: err}
	}
	return stored, nil
}

// newID returns a new document id (UUIDv7, lexically ordered by creation time)
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func validateName(kind, name string) error {
	if name == "" {
		return newError(CodeInvalidArgument, "%s name must not be empty", kind)
	}
	if strings.ContainsAny(name, "\x00\n") {
		return newError(CodeInvalidArgument, "%s name %q contains invalid characters", kind, name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Compensation
// --------------------------------------------------------------------------

// undoLog collects compensating actions of a multi key write
type undoLog []func() error

func (u *undoLog) push(fn func() error) {
	*u = append(*u, fn)
}

// rollback runs the compensations in reverse order, failures are logged
func (u undoLog) rollback() {
	for i := len(u) - 1; i >= 0; i-- {
		if err := u[i](); err != nil {
			log.Errorf("compensation step failed, database may be inconsistent: %v", err)
		}
	}
}
