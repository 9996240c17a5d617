package progress

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the durable local storage collaborator.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{m: map[string]string{}} }

func (k *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *MemoryKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *MemoryKV) Remove(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

// SQLKV stores values in the local_kv table (see db.SchemaLocal).
type SQLKV struct {
	db *sql.DB
}

func NewSQLKV(db *sql.DB) *SQLKV { return &SQLKV{db: db} }

func (k *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := k.db.QueryRowContext(ctx, `SELECT kv_value FROM local_kv WHERE kv_key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *SQLKV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, `INSERT INTO local_kv (kv_key, kv_value, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (kv_key) DO UPDATE SET kv_value=EXCLUDED.kv_value, updated_at=EXCLUDED.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func (k *SQLKV) Remove(ctx context.Context, key string) error {
	_, err := k.db.ExecContext(ctx, `DELETE FROM local_kv WHERE kv_key=$1`, key)
	return err
}

// RedisKV keeps scratch state in Redis; TTL 0 means no expiry.
type RedisKV struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisKV(rdb *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{rdb: rdb, ttl: ttl}
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := k.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	return k.rdb.Set(ctx, key, value, k.ttl).Err()
}

func (k *RedisKV) Remove(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, key).Err()
}
