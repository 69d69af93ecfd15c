package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"drugwatch/pkg/platform/sentinel"
)

const (
	watchKeyPrefix = "drugwatch:watch:"
	ownerKeyPrefix = "drugwatch:watches:"
)

// RedisStore shares watch state across instances. Watches are persisted as
// JSON values; a per-owner set indexes them for listing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, w Watch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal watch: %w", err)
	}
	ok, err := s.client.SetNX(ctx, watchKeyPrefix+w.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store watch: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	if err := s.client.SAdd(ctx, ownerKeyPrefix+w.Owner, w.ID).Err(); err != nil {
		return fmt.Errorf("index watch: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Watch, error) {
	data, err := s.client.Get(ctx, watchKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Watch{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Watch{}, fmt.Errorf("load watch: %w", err)
	}
	var w Watch
	if err := json.Unmarshal(data, &w); err != nil {
		return Watch{}, fmt.Errorf("decode watch %s: %w", id, err)
	}
	return w, nil
}

func (s *RedisStore) ListByOwner(ctx context.Context, owner string) ([]Watch, error) {
	ids, err := s.client.SMembers(ctx, ownerKeyPrefix+owner).Result()
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	out := make([]Watch, 0, len(ids))
	for _, id := range ids {
		w, err := s.Get(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Index entry outlived the watch; drop it.
			_ = s.client.SRem(ctx, ownerKeyPrefix+owner, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, w Watch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal watch: %w", err)
	}
	ok, err := s.client.SetXX(ctx, watchKeyPrefix+w.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("update watch: %w", err)
	}
	if !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, watchKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	return s.client.SRem(ctx, ownerKeyPrefix+w.Owner, id).Err()
}
