package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const backendRedis = "redis"

// mgetChunk bounds the number of keys fetched by a single MGET.
const mgetChunk = 500

// maxTxBackoff caps the wait between conflicting transaction attempts.
const maxTxBackoff = 200 * time.Millisecond

// RedisConfig configures the Redis backend. It is passed explicitly at
// construction; the backend never reads the environment.
type RedisConfig struct {
	URL          string        `koanf:"url" yaml:"url"`
	KeyPrefix    string        `koanf:"key_prefix" yaml:"key_prefix"`
	IndexPrefix  string        `koanf:"index_prefix" yaml:"index_prefix"`
	Codec        string        `koanf:"codec" yaml:"codec"`
	DialTimeout  time.Duration `koanf:"dial_timeout" yaml:"dial_timeout"`
	PoolSize     int           `koanf:"pool_size" yaml:"pool_size"`
	MaxTxRetries int           `koanf:"max_tx_retries" yaml:"max_tx_retries"`
	TxBackoff    time.Duration `koanf:"tx_backoff" yaml:"tx_backoff"`
}

// DefaultRedisConfig returns the configuration used when fields are unset.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379/0",
		KeyPrefix:    "context:",
		IndexPrefix:  "context:index:",
		Codec:        CodecJSON,
		DialTimeout:  5 * time.Second,
		MaxTxRetries: 50,
		TxBackoff:    2 * time.Millisecond,
	}
}

// RedisBackend stores each record as a blob under KeyPrefix+id and keeps its
// secondary indexes as Redis sets. Every mutation is a single MULTI/EXEC
// transaction guarded by WATCH on the record key.
type RedisBackend struct {
	cfg   RedisConfig
	opts  *redis.Options
	codec Codec
	log   logrus.FieldLogger

	mu     sync.Mutex
	client *redis.Client
	ready  bool
}

// NewRedisBackend validates cfg and returns a backend. The connection is
// established lazily on first use.
func NewRedisBackend(cfg RedisConfig, log logrus.FieldLogger) (*RedisBackend, error) {
	def := DefaultRedisConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = def.IndexPrefix
	}
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = def.MaxTxRetries
	}
	if cfg.TxBackoff <= 0 {
		cfg.TxBackoff = def.TxBackoff
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &RedisBackend{
		cfg:   cfg,
		opts:  opts,
		codec: codec,
		log:   log.WithField("backend", backendRedis),
	}, nil
}

func (r *RedisBackend) payloadKey(id string) string { return r.cfg.KeyPrefix + id }

func (r *RedisBackend) indexKey(family IndexFamily, value string) string {
	return r.cfg.IndexPrefix + string(family) + ":" + value
}

func (r *RedisBackend) masterKey() string { return r.cfg.IndexPrefix + "all" }

// conn returns a ready client, (re)connecting if the last attempt failed or
// no connection has been made yet.
func (r *RedisBackend) conn(ctx context.Context) (*redis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil && r.ready {
		return r.client, nil
	}
	if r.client == nil {
		r.client = redis.NewClient(r.opts)
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return nil, storageErr(backendRedis, "connect", err)
	}
	r.ready = true
	r.log.WithField("addr", r.opts.Addr).Debug("connected")
	return r.client, nil
}

// fail marks the connection as not ready when err looks like a transport
// failure, so the next operation pings before reusing it.
func (r *RedisBackend) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) && !errors.Is(err, ErrNotFound) {
		r.mu.Lock()
		r.ready = false
		r.mu.Unlock()
		r.log.WithError(err).WithField("op", op).Warn("redis operation failed")
	}
	return storageErr(backendRedis, op, err)
}

func (r *RedisBackend) Store(ctx context.Context, p *ContextPayload) (string, error) {
	if p == nil {
		return "", &ValidationError{Reason: "payload is nil"}
	}
	base := prepare(p)

	err := r.watch(ctx, "store", base.ID, func(tx *redis.Tx) error {
		old, err := r.load(ctx, tx, base.ID)
		if err != nil {
			return err
		}
		rec := base.Clone()
		keepCreated(old, rec)
		data, err := r.codec.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		delta := ComputeIndexDelta(old, rec)
		if err := r.checkIndexKeys(ctx, tx, delta); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.payloadKey(rec.ID), data, 0)
			r.applyIndexDelta(ctx, pipe, rec.ID, delta)
			return nil
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return base.ID, nil
}

func (r *RedisBackend) Retrieve(ctx context.Context, id string) (*ContextPayload, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := r.load(ctx, client, id)
	if err != nil {
		return nil, r.fail("retrieve", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *RedisBackend) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	candidates, err := r.candidates(ctx, params)
	if err != nil {
		return nil, err
	}
	return Paginate(candidates, params), nil
}

func (r *RedisBackend) Update(ctx context.Context, id string, patch ContextPatch) (bool, error) {
	found := false
	err := r.watch(ctx, "update", id, func(tx *redis.Tx) error {
		old, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		found = old != nil
		if !found {
			return nil
		}
		rec := patch.Apply(old, nowFunc())
		data, err := r.codec.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		delta := ComputeIndexDelta(old, rec)
		if err := r.checkIndexKeys(ctx, tx, delta); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.payloadKey(id), data, 0)
			r.applyIndexDelta(ctx, pipe, id, delta)
			return nil
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *RedisBackend) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.watch(ctx, "delete", id, func(tx *redis.Tx) error {
		old, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		found = old != nil
		if !found {
			return nil
		}
		delta := ComputeIndexDelta(old, nil)
		if err := r.checkIndexKeys(ctx, tx, delta); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, r.payloadKey(id))
			r.applyIndexDelta(ctx, pipe, id, delta)
			return nil
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *RedisBackend) Count(ctx context.Context, params *QueryParams) (int, error) {
	if params == nil {
		client, err := r.conn(ctx)
		if err != nil {
			return 0, err
		}
		n, err := client.SCard(ctx, r.masterKey()).Result()
		if err != nil {
			return 0, r.fail("count", err)
		}
		return int(n), nil
	}
	candidates, err := r.candidates(ctx, *params)
	if err != nil {
		return 0, err
	}
	return len(Filter(candidates, *params)), nil
}

// Close closes the underlying client, if one was opened.
func (r *RedisBackend) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.ready = false
	return err
}

// Members returns the ids stored in one index set.
func (r *RedisBackend) Members(ctx context.Context, family IndexFamily, value string) ([]string, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := client.SMembers(ctx, r.indexKey(family, value)).Result()
	if err != nil {
		return nil, r.fail("members", err)
	}
	return ids, nil
}

// watch runs fn inside WATCH on the record key. When a concurrent writer
// invalidates the transaction it is retried with jittered exponential
// backoff, so contending writers serialize instead of failing.
func (r *RedisBackend) watch(ctx context.Context, op, id string, fn func(tx *redis.Tx) error) error {
	client, err := r.conn(ctx)
	if err != nil {
		return err
	}

	attempts := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(r.txBackoff(), uint64(r.cfg.MaxTxRetries-1)), ctx)
	err = backoff.Retry(func() error {
		attempts++
		err := client.Watch(ctx, fn, r.payloadKey(id))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			r.log.WithFields(logrus.Fields{"op": op, "id": id, "attempt": attempts}).Debug("transaction conflict, retrying")
			return err
		default:
			return backoff.Permanent(err)
		}
	}, policy)
	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("giving up after %d conflicting attempts: %w", attempts, err)
	}
	return r.fail(op, err)
}

func (r *RedisBackend) txBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.TxBackoff
	b.MaxInterval = maxTxBackoff
	b.MaxElapsedTime = 0
	return b
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads and decodes one record. A missing key yields (nil, nil).
func (r *RedisBackend) load(ctx context.Context, c getter, id string) (*ContextPayload, error) {
	data, err := c.Get(ctx, r.payloadKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec ContextPayload
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return &rec, nil
}

// candidates resolves the seeding index to ids and bulk-fetches the records.
func (r *RedisBackend) candidates(ctx context.Context, params QueryParams) ([]*ContextPayload, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	seed := SeedFor(params)
	if seed.Family == "" {
		ids, err = client.SMembers(ctx, r.masterKey()).Result()
	} else {
		keys := make([]string, 0, len(seed.Values))
		for _, v := range seed.Values {
			keys = append(keys, r.indexKey(seed.Family, v))
		}
		ids, err = client.SUnion(ctx, keys...).Result()
	}
	if err != nil {
		return nil, r.fail("query", err)
	}

	out := make([]*ContextPayload, 0, len(ids))
	for start := 0; start < len(ids); start += mgetChunk {
		end := start + mgetChunk
		if end > len(ids) {
			end = len(ids)
		}
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, r.payloadKey(id))
		}
		vals, err := client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, r.fail("query", err)
		}
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				// Index points at a record deleted between SMEMBERS and MGET.
				continue
			}
			var rec ContextPayload
			if err := r.codec.Unmarshal([]byte(s), &rec); err != nil {
				return nil, r.fail("query", fmt.Errorf("decoding record %s: %w", ids[start+i], err))
			}
			out = append(out, &rec)
		}
	}
	return out, nil
}

// checkIndexKeys verifies that every set d touches is a set or absent.
// MULTI/EXEC does not roll back a command that fails at run time, so a
// WRONGTYPE index key must be caught before anything is queued.
func (r *RedisBackend) checkIndexKeys(ctx context.Context, tx *redis.Tx, d IndexDelta) error {
	keys := make([]string, 0, len(d.Add)+len(d.Remove)+1)
	for _, e := range d.Add {
		keys = append(keys, r.indexKey(e.Family, e.Value))
	}
	for _, e := range d.Remove {
		keys = append(keys, r.indexKey(e.Family, e.Value))
	}
	if d.Master != 0 {
		keys = append(keys, r.masterKey())
	}
	if len(keys) == 0 {
		return nil
	}

	cmds := make([]*redis.StatusCmd, len(keys))
	if _, err := tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.Type(ctx, k)
		}
		return nil
	}); err != nil {
		return err
	}
	for i, cmd := range cmds {
		if t := cmd.Val(); t != "set" && t != "none" {
			return fmt.Errorf("index key %s holds a %s, not a set", keys[i], t)
		}
	}
	return nil
}

// applyIndexDelta queues the set operations for d on pipe.
func (r *RedisBackend) applyIndexDelta(ctx context.Context, pipe redis.Pipeliner, id string, d IndexDelta) {
	for _, e := range d.Remove {
		pipe.SRem(ctx, r.indexKey(e.Family, e.Value), id)
	}
	for _, e := range d.Add {
		pipe.SAdd(ctx, r.indexKey(e.Family, e.Value), id)
	}
	switch {
	case d.Master > 0:
		pipe.SAdd(ctx, r.masterKey(), id)
	case d.Master < 0:
		pipe.SRem(ctx, r.masterKey(), id)
	}
}
