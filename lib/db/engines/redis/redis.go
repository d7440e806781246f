package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/util"
	goredis "github.com/go-redis/redis/v8"
)

const (
	magicNum     = "REDISKV\x00"
	redisVersion = 1
	scanCount    = 500
)

// DBOptions configures the redis engine
type DBOptions struct {
	Addr     string        // host:port of the server
	Password string        // optional
	DB       int           // logical database number
	Prefix   string        // namespace prepended to every key
	Timeout  time.Duration // dial, read and write timeout (0 = 2s)

	// Client replaces Addr/Password/DB with an existing client. The engine does not
	// close a client it did not create.
	Client *goredis.Client
}

// redisImpl implements db.KVDB on a Redis server. Keys are namespaced by a prefix so
// several databases can share a server.
type redisImpl struct {
	client     *goredis.Client
	ownsClient bool
	prefix     string
	timeout    time.Duration
}

// NewRedisDB connects to the server and verifies the connection with a PING
func NewRedisDB(opts DBOptions) (db.KVDB, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}

	client := opts.Client
	owns := false
	if client == nil {
		if opts.Addr == "" {
			return nil, fmt.Errorf("redis: no server address given")
		}
		client = goredis.NewClient(&goredis.Options{
			Addr:         opts.Addr,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.Timeout,
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		})
		owns = true
	}

	r := &redisImpl{client: client, ownsClient: owns, prefix: opts.Prefix, timeout: opts.Timeout}

	ctx, cancel := r.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if owns {
			_ = client.Close()
		}
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}
	return r, nil
}

func (r *redisImpl) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *redisImpl) key(key string) string {
	return r.prefix + key
}

// pattern matches every key of the namespace, glob characters in the prefix are escaped
func (r *redisImpl) pattern() string {
	var sb strings.Builder
	for _, c := range r.prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	sb.WriteByte('*')
	return sb.String()
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (r *redisImpl) Set(key string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

// SetIfUnset maps to SETNX, which the server executes atomically
func (r *redisImpl) SetIfUnset(key string, value []byte) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.SetNX(ctx, r.key(key), value, 0).Result()
}

func (r *redisImpl) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

func (r *redisImpl) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisImpl) Has(key string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

// scanKeys collects all keys of the namespace (with prefix)
func (r *redisImpl) scanKeys() ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, r.pattern(), scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// Range scans the namespace and fetches values in batches with MGET.
// Keys deleted between the scan and the fetch are skipped.
func (r *redisImpl) Range(fn func(key string, value []byte) bool) error {
	keys, err := r.scanKeys()
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += scanCount {
		end := start + scanCount
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		ctx, cancel := r.ctx()
		values, err := r.client.MGet(ctx, batch...).Result()
		cancel()
		if err != nil {
			return err
		}

		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if !fn(strings.TrimPrefix(batch[i], r.prefix), []byte(s)) {
				return nil
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

func (r *redisImpl) Save(w io.Writer) error {
	var entries []util.Entry
	if err := r.Range(func(key string, value []byte) bool {
		entries = append(entries, util.Entry{Key: key, Value: value})
		return true
	}); err != nil {
		return err
	}
	return util.WriteSnapshot(w, magicNum, redisVersion, entries)
}

// Load parses the complete snapshot first and then replaces the namespace in one
// MULTI/EXEC transaction.
func (r *redisImpl) Load(rd io.Reader) error {
	var entries []util.Entry
	if err := util.ReadSnapshot(rd, magicNum, redisVersion, func(e util.Entry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		return err
	}

	existing, err := r.scanKeys()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout*10)
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(existing) > 0 {
			pipe.Del(ctx, existing...)
		}
		for _, e := range entries {
			pipe.Set(ctx, r.key(e.Key), e.Value, 0)
		}
		return nil
	})
	return err
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (r *redisImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	sizeBytes := 0
	_ = r.Range(func(key string, value []byte) bool {
		histogram.AddSample(len(value))
		sizeBytes += len(key) + len(value)
		return true
	})

	meta := &struct {
		Addr             string `json:"addr"`
		Prefix           string `json:"prefix"`
		MedianValueSize  int    `json:"median_value_size"`
		AverageValueSize int    `json:"average_value_size"`
	}{
		Addr:             r.client.Options().Addr,
		Prefix:           r.prefix,
		MedianValueSize:  histogram.MedianEstimate(),
		AverageValueSize: histogram.AverageSize(),
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Keys:      int(histogram.Count()),
		DbType:    db.ImplRedis,
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

func (r *redisImpl) SupportsFeature(feature db.Feature) bool {
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

// Close closes the client if the engine created it
func (r *redisImpl) Close() error {
	if !r.ownsClient {
		return nil
	}
	return r.client.Close()
}
