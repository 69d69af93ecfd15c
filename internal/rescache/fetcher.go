package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"drugwatch/internal/fetch"
	"drugwatch/pkg/platform/sentinel"
)

// CachingFetcher wraps the fetch executor with a response cache keyed by
// request URL. A hit inside the TTL window skips the network entirely; a
// miss fetches, stores, and returns.
type CachingFetcher struct {
	client *fetch.Client
	store  Store
	logger *slog.Logger
}

func NewCachingFetcher(client *fetch.Client, store Store, logger *slog.Logger) *CachingFetcher {
	return &CachingFetcher{
		client: client,
		store:  store,
		logger: logger.With("component", "rescache"),
	}
}

// GetJSON resolves url through the cache and decodes the payload into v.
func (f *CachingFetcher) GetJSON(ctx context.Context, url string, opts fetch.Options, v any) error {
	if e, err := f.store.Get(ctx, url); err == nil {
		if uerr := json.Unmarshal(e.Data, v); uerr == nil {
			return nil
		}
		// Cached payload no longer matches the expected shape; treat as a
		// miss and refetch.
		_ = f.store.Invalidate(ctx, url)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		// A broken cache backend must not fail the fetch path.
		f.logger.WarnContext(ctx, "cache read failed", "url", url, "error", err)
	}

	body, err := f.client.Get(ctx, url, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return err
	}
	if serr := f.store.Set(ctx, url, body); serr != nil {
		f.logger.WarnContext(ctx, "cache write failed", "url", url, "error", serr)
	}
	return nil
}

// Invalidate drops one cached URL.
func (f *CachingFetcher) Invalidate(ctx context.Context, url string) error {
	return f.store.Invalidate(ctx, url)
}
