package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a KV backend on a Redis server. All keys are namespaced under
// a fixed prefix so one server can hold several ledgers. Apply uses a
// TxPipeline, which Redis executes as a single MULTI/EXEC block, giving
// the all-or-nothing visibility the journal requires.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures a Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key; defaults to "caixa".
	Namespace string
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	ns := opts.Namespace
	if ns == "" {
		ns = "caixa"
	}
	return &Redis{client: client, prefix: ns + ":"}, nil
}

// Get returns the value for key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Put stores value under key.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Apply executes all ops inside one MULTI/EXEC block.
func (r *Redis) Apply(ctx context.Context, ops []Op) error {
	pipe := r.client.TxPipeline()
	for _, op := range ops {
		if op.Delete {
			pipe.Del(ctx, r.prefix+op.Key)
			continue
		}
		pipe.Set(ctx, r.prefix+op.Key, op.Value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis apply (%d ops): %w", len(ops), err)
	}
	return nil
}

// List scans all keys under prefix and fetches their values.
func (r *Redis) List(ctx context.Context, prefix string) ([]Pair, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	pairs := make([]Pair, 0, len(keys))
	for i, k := range keys {
		s, ok := vals[i].(string)
		if !ok {
			// Key expired between SCAN and MGET.
			continue
		}
		pairs = append(pairs, Pair{Key: k[len(r.prefix):], Value: []byte(s)})
	}
	return pairs, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
