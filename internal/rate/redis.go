package rate

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each key's attempt history in a sorted set scored by
// unix-millisecond timestamps, which float64 scores represent exactly.
// Stale members are removed on read; keys expire one retain interval after
// the last write.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore describes the newredisstore operation and its observable behavior.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "arl"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// CountSince describes the countsince operation and its observable behavior.
//
// CountSince does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) CountSince(ctx context.Context, key string, since time.Time) (int, error) {
	k := s.key(key)

	pipe := s.client.TxPipeline()
	// Exclusive upper bound: members stamped exactly at the window edge
	// still count.
	pipe.ZRemRangeByScore(ctx, k, "0", "("+strconv.FormatInt(since.UnixMilli(), 10))
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return int(card.Val()), nil
}

// Record describes the record operation and its observable behavior.
//
// Record does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Record(ctx context.Context, key string, at time.Time, retain time.Duration) error {
	k := s.key(key)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, k, retain)
	_, err := pipe.Exec(ctx)

	return err
}

// Clear describes the clear operation and its observable behavior.
//
// Clear does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
