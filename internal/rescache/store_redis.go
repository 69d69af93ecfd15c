package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"drugwatch/pkg/platform/sentinel"
)

// RedisStore persists entries in Redis under a namespaced prefix so cached
// responses survive restarts. TTL is enforced twice: Redis expiry prunes
// passively, and Get re-checks FetchedAt so a clock-skewed backend never
// serves stale data. Entry count is bounded through a sorted-set index
// scored by fetch time.
type RedisStore struct {
	client *redis.Client
	cfg    Config

	now func() time.Time
}

func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "drugwatch:rc:"
	}
	return &RedisStore{client: client, cfg: cfg, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := s.client.Get(ctx, s.cfg.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Corrupt entry: purge and report a miss, never a read failure.
		s.remove(ctx, key)
		return Entry{}, sentinel.ErrNotFound
	}
	if s.now().Sub(e.FetchedAt) >= s.cfg.TTL {
		s.remove(ctx, key)
		return Entry{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, data json.RawMessage) error {
	e := Entry{Data: data, FetchedAt: s.now(), Key: key}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.cfg.Prefix+key, raw, s.cfg.TTL)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(e.FetchedAt.UnixMilli()),
		Member: key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return s.prune(ctx)
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	s.remove(ctx, key)
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	pipe := s.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, s.cfg.Prefix+k)
	}
	pipe.Del(ctx, s.indexKey())
	_, err = pipe.Exec(ctx)
	return err
}

// prune enforces MaxEntries by dropping the oldest-scored index members.
func (s *RedisStore) prune(ctx context.Context) error {
	if s.cfg.MaxEntries <= 0 {
		return nil
	}
	count, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil || count <= int64(s.cfg.MaxEntries) {
		return err
	}
	excess := count - int64(s.cfg.MaxEntries)
	oldest, err := s.client.ZRange(ctx, s.indexKey(), 0, excess-1).Result()
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	for _, k := range oldest {
		pipe.Del(ctx, s.cfg.Prefix+k)
	}
	pipe.ZRemRangeByRank(ctx, s.indexKey(), 0, excess-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) remove(ctx context.Context, key string) {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.cfg.Prefix+key)
	pipe.ZRem(ctx, s.indexKey(), key)
	_, _ = pipe.Exec(ctx)
}

func (s *RedisStore) indexKey() string {
	return s.cfg.Prefix + "index"
}
