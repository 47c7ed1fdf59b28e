package arbiter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"inkflow/models"
)

const holdKeyPrefix = "hold:"

// HoldStore persists hold records keyed by slot. PutIfAbsent must be atomic
// test-and-set: it is the only concurrency-control mechanism in the system.
type HoldStore interface {
	// PutIfAbsent writes rec under key only when no record exists; reports
	// whether the write happened.
	PutIfAbsent(ctx context.Context, key string, rec models.HoldRecord, ttl time.Duration) (bool, error)
	// Put writes rec unconditionally (used to refresh a holder's own hold).
	Put(ctx context.Context, key string, rec models.HoldRecord, ttl time.Duration) error
	// Get returns the record under key, or nil when absent.
	Get(ctx context.Context, key string) (*models.HoldRecord, error)
	// Delete removes the record under key; absence is not an error.
	Delete(ctx context.Context, key string) error
}

// RedisHoldStore stores hold records in Redis, relying on SET NX for the
// conditional write and on key TTLs for time-based eviction.
type RedisHoldStore struct {
	client *redis.Client
}

func NewRedisHoldStore(client *redis.Client) *RedisHoldStore {
	return &RedisHoldStore{client: client}
}

func (s *RedisHoldStore) PutIfAbsent(ctx context.Context, key string, rec models.HoldRecord, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, holdKeyPrefix+key, b, ttl).Result()
}

func (s *RedisHoldStore) Put(ctx context.Context, key string, rec models.HoldRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, holdKeyPrefix+key, b, ttl).Err()
}

func (s *RedisHoldStore) Get(ctx context.Context, key string) (*models.HoldRecord, error) {
	data, err := s.client.Get(ctx, holdKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec models.HoldRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisHoldStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, holdKeyPrefix+key).Err()
}
