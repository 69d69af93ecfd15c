//go:build integration

package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drugwatch/internal/domain"
	"drugwatch/internal/novelty"
	"drugwatch/pkg/platform/sentinel"
	"drugwatch/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	rc    *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(s.ctx))
	s.store = NewRedisStore(s.rc.Client)
}

func (s *RedisStoreSuite) TestRoundTrip() {
	viewed := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	w := testWatch("w1", "alice", viewed)
	w.Seen = novelty.SeenState{
		domain.SourceProducts: {LastViewedAt: &viewed, IDs: []string{"1001"}},
	}

	s.Require().NoError(s.store.Create(s.ctx, w))
	s.Require().ErrorIs(s.store.Create(s.ctx, w), sentinel.ErrConflict)

	got, err := s.store.Get(s.ctx, "w1")
	s.Require().NoError(err)
	s.Equal(w.Criteria, got.Criteria)
	s.Equal([]string{"1001"}, got.Seen[domain.SourceProducts].IDs)
}

func (s *RedisStoreSuite) TestUpdateMissingIsNotFound() {
	err := s.store.Update(s.ctx, testWatch("ghost", "alice", time.Now()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestListByOwnerScopesAndSorts() {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, testWatch("w2", "alice", base.Add(time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, testWatch("w1", "alice", base)))
	s.Require().NoError(s.store.Create(s.ctx, testWatch("w3", "bob", base)))

	watches, err := s.store.ListByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(watches, 2)
	s.Equal("w1", watches[0].ID)
	s.Equal("w2", watches[1].ID)
}

func (s *RedisStoreSuite) TestDeleteRemovesFromIndex() {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, testWatch("w1", "alice", base)))

	s.Require().NoError(s.store.Delete(s.ctx, "w1"))
	_, err := s.store.Get(s.ctx, "w1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	watches, err := s.store.ListByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Empty(watches)

	s.Require().ErrorIs(s.store.Delete(s.ctx, "w1"), sentinel.ErrNotFound)
}
