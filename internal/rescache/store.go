// Package rescache is the per-request response cache: a persistent key→value
// store (key = request URL) with a store-level TTL and a bounded entry count
// evicted oldest-first. It wraps the fetch executor so identical requests
// inside the TTL window never hit the network twice.
package rescache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one cached response. Valid iff now - FetchedAt < TTL.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Key       string          `json:"key"`
}

// Store is the response cache contract. Get returns sentinel.ErrNotFound for
// missing, expired, or corrupt entries; expired and corrupt entries are
// evicted lazily on access rather than surfacing as read failures.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, data json.RawMessage) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Config tunes one store instance. Two instances back the service: a
// per-key store (short TTL) and a bulk/scraped store (coarse TTL).
type Config struct {
	TTL        time.Duration
	MaxEntries int
	// Prefix namespaces keys in shared backends.
	Prefix string
}
