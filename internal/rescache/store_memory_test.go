package rescache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drugwatch/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	clock time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore(Config{TTL: time.Minute, MaxEntries: 10})
	s.clock = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func (s *MemoryStoreSuite) TestGetSetRoundTrip() {
	err := s.store.Set(s.ctx, "https://r/products/1", json.RawMessage(`{"code":"1"}`))
	s.Require().NoError(err)

	e, err := s.store.Get(s.ctx, "https://r/products/1")
	s.Require().NoError(err)
	s.Equal("https://r/products/1", e.Key)
	s.JSONEq(`{"code":"1"}`, string(e.Data))
}

func (s *MemoryStoreSuite) TestMissReturnsNotFound() {
	_, err := s.store.Get(s.ctx, "https://r/absent")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestTTLBoundary() {
	s.Require().NoError(s.store.Set(s.ctx, "k", json.RawMessage(`1`)))

	s.advance(time.Minute - time.Millisecond)
	_, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err, "entry must be present just before TTL")

	s.advance(2 * time.Millisecond)
	_, err = s.store.Get(s.ctx, "k")
	s.Require().ErrorIs(err, sentinel.ErrNotFound, "entry must be absent just after TTL")

	// Lazy eviction removed it entirely.
	s.Equal(0, s.store.Len())
}

func (s *MemoryStoreSuite) TestEvictionDropsOldestByInsertion() {
	for i := 0; i < 15; i++ {
		key := fmt.Sprintf("k%02d", i)
		s.Require().NoError(s.store.Set(s.ctx, key, json.RawMessage(`1`)))
		s.advance(time.Millisecond)
	}

	s.Equal(10, s.store.Len())
	for i := 0; i < 5; i++ {
		_, err := s.store.Get(s.ctx, fmt.Sprintf("k%02d", i))
		s.ErrorIs(err, sentinel.ErrNotFound, "k%02d should have been evicted", i)
	}
	for i := 5; i < 15; i++ {
		_, err := s.store.Get(s.ctx, fmt.Sprintf("k%02d", i))
		s.NoError(err, "k%02d should survive", i)
	}
}

func (s *MemoryStoreSuite) TestOverwriteDoesNotEvict() {
	for i := 0; i < 10; i++ {
		s.Require().NoError(s.store.Set(s.ctx, fmt.Sprintf("k%02d", i), json.RawMessage(`1`)))
		s.advance(time.Millisecond)
	}
	s.Require().NoError(s.store.Set(s.ctx, "k00", json.RawMessage(`2`)))

	s.Equal(10, s.store.Len())
	e, err := s.store.Get(s.ctx, "k00")
	s.Require().NoError(err)
	s.Equal("2", string(e.Data))
}

func (s *MemoryStoreSuite) TestInvalidateAndClear() {
	s.Require().NoError(s.store.Set(s.ctx, "a", json.RawMessage(`1`)))
	s.Require().NoError(s.store.Set(s.ctx, "b", json.RawMessage(`2`)))

	s.Require().NoError(s.store.Invalidate(s.ctx, "a"))
	_, err := s.store.Get(s.ctx, "a")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Clear(s.ctx))
	s.Equal(0, s.store.Len())
}
