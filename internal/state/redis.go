package state

import (
	"context"
	"sort"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Hash     string // hash holding the alert keys as fields
}

// RedisStore keeps alert keys as fields of one Redis hash.
type RedisStore struct {
	client *goredis.Client
	hash   string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, persistErr("redis", "ping", err)
	}

	hash := cfg.Hash
	if hash == "" {
		hash = "kumo:alerts"
	}
	return &RedisStore{client: client, hash: hash}, nil
}

func (r *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.HExists(ctx, r.hash, key).Result()
	if err != nil {
		return false, persistErr("redis", "read", err)
	}
	return ok, nil
}

func (r *RedisStore) Put(ctx context.Context, key string) error {
	return persistErr("redis", "write", r.client.HSet(ctx, r.hash, key, "true").Err())
}

func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, persistErr("redis", "read", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return persistErr("redis", "delete", r.client.HDel(ctx, r.hash, keys...).Err())
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
