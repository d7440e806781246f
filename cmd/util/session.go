package util

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ValentinKolb/petlaDB/lib/common"
	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/bolt"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/maple"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/redis"
	"github.com/ValentinKolb/petlaDB/lib/dbutil"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/document/codec"
	"github.com/ValentinKolb/petlaDB/lib/lockmgr"
	"github.com/ValentinKolb/petlaDB/lib/store/lstore"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/natefinch/atomic"
)

var log = logger.GetLogger("cli")

// DefaultBoltFile is used by the bolt engine when no data file is given
const DefaultBoltFile = "petla.db"

// Session is the opened database of one command invocation
type Session struct {
	Config *common.Config
	Store  lstore.LocalStore
	DB     *docstore.Database
	Utils  *dbutil.Utils
}

var current *Session

// Current returns the session opened by OpenSession (nil before)
func Current() *Session {
	return current
}

// OpenSession builds the engine, store and database described by conf
func OpenSession(conf *common.Config) (*Session, error) {
	if err := common.InitLoggers(conf); err != nil {
		return nil, err
	}
	log.Debugf("opening database with config: %s", conf)

	c, err := codec.New(conf.Codec)
	if err != nil {
		return nil, err
	}

	st, err := lstore.NewLocalStore(engineFactory(conf), &lstore.Options{Quota: conf.Quota})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s engine: %w", conf.Engine, err)
	}

	opts := docstore.DefaultOptions()
	opts.Name = conf.DBName
	opts.Codec = c
	opts.StrictOperators = conf.StrictOperators
	if conf.Lock {
		opts.Locker = lockmgr.NewLockManager(st)
		if conf.LockTimeout > 0 {
			opts.LockTimeout = conf.LockTimeout
		}
	}

	database, err := docstore.New(st, opts)
	if err != nil {
		_ = st.DB().Close()
		return nil, err
	}

	current = &Session{
		Config: conf,
		Store:  st,
		DB:     database,
		Utils:  dbutil.New(database, nil),
	}
	return current, nil
}

// CloseSession writes the maple snapshot (if a data file is configured) and closes the engine
func CloseSession() error {
	s := current
	if s == nil {
		return nil
	}
	current = nil
	defer common.SyncLoggers()

	var saveErr error
	if s.Config.Engine == common.EngineMaple && s.Config.DataFile != "" {
		saveErr = saveSnapshot(s.Store.DB(), s.Config.DataFile)
	}
	return errors.Join(saveErr, s.Store.DB().Close())
}

// engineFactory returns the factory of the configured KV engine
func engineFactory(conf *common.Config) func() (db.KVDB, error) {
	return func() (db.KVDB, error) {
		switch conf.Engine {
		case common.EngineBolt:
			path := conf.DataFile
			if path == "" {
				path = DefaultBoltFile
			}
			return bolt.NewBoltDB(bolt.DBOptions{Path: path})
		case common.EngineRedis:
			return redis.NewRedisDB(redis.DBOptions{
				Addr:   conf.RedisAddr,
				Prefix: conf.RedisPrefix,
			})
		default:
			kv := maple.NewMapleDB(nil)
			if conf.DataFile != "" {
				if err := loadSnapshot(kv, conf.DataFile); err != nil {
					_ = kv.Close()
					return nil, err
				}
			}
			return kv, nil
		}
	}
}

// loadSnapshot loads a maple snapshot file, a missing file starts an empty database
func loadSnapshot(kv db.KVDB, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Infof("data file %s does not exist yet, starting empty", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := kv.Load(f); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// saveSnapshot atomically replaces the data file with the current maple state
func saveSnapshot(kv db.KVDB, path string) error {
	var buf bytes.Buffer
	if err := kv.Save(&buf); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debugf("wrote %d bytes to %s", buf.Len(), path)
	return nil
}
