// Package products adapts the structured product registry: per-key lookups,
// server-side name/ingredient search, and multi-call hydration of
// sub-attributes (ingredients, routes, forms live behind their own
// endpoints).
package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"drugwatch/internal/domain"
	"drugwatch/internal/fetch"
	"drugwatch/internal/rescache"
	"drugwatch/pkg/platform/parallel"
	"drugwatch/pkg/platform/sentinel"
)

// Client is the products registry adapter. All network traffic goes through
// the caching fetcher; sub-attribute hydration is bounded by concurrency.
type Client struct {
	baseURL     string
	fetcher     *rescache.CachingFetcher
	opts        fetch.Options
	concurrency int
	logger      *slog.Logger
}

func New(baseURL string, fetcher *rescache.CachingFetcher, opts fetch.Options, concurrency int, logger *slog.Logger) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Client{
		baseURL:     baseURL,
		fetcher:     fetcher,
		opts:        opts,
		concurrency: concurrency,
		logger:      logger.With("component", "products"),
	}
}

// SearchByName runs a server-side name lookup and hydrates sub-attributes
// for each row.
func (c *Client) SearchByName(ctx context.Context, term string) ([]domain.Product, error) {
	return c.search(ctx, "name", term)
}

// SearchByIngredient runs a server-side active-ingredient lookup.
func (c *Client) SearchByIngredient(ctx context.Context, term string) ([]domain.Product, error) {
	return c.search(ctx, "ingredient", term)
}

func (c *Client) search(ctx context.Context, param, term string) ([]domain.Product, error) {
	u := fmt.Sprintf("%s/products?%s=%s", c.baseURL, param, url.QueryEscape(term))

	var rows []rawProduct
	if err := c.fetcher.GetJSON(ctx, u, c.opts, &rows); err != nil {
		return nil, fmt.Errorf("products search: %w", err)
	}

	records := make([]domain.Product, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	c.fillAttributes(ctx, records)
	return records, nil
}

// GetByCode returns one hydrated product, or sentinel.ErrNotFound.
func (c *Client) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	return c.Hydrate(ctx, code)
}

// Hydrate fetches the core record plus its three sub-attribute collections.
// Only a failed core call is fatal; a missing sub-attribute collection leaves
// the field defaulted so one flaky endpoint cannot sink the whole record.
func (c *Client) Hydrate(ctx context.Context, code string) (domain.Product, error) {
	u := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(code))

	var row rawProduct
	if err := c.fetcher.GetJSON(ctx, u, c.opts, &row); err != nil {
		if fetch.StatusOf(err) == 404 {
			return domain.Product{}, sentinel.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("products get %s: %w", code, err)
	}

	p := row.toDomain()
	c.hydrateAttrs(ctx, &p)
	return p, nil
}

// fillAttributes hydrates sub-attributes for every search row, at most
// concurrency rows in flight.
func (c *Client) fillAttributes(ctx context.Context, records []domain.Product) {
	tasks := make([]func(context.Context) (struct{}, error), len(records))
	for i := range records {
		i := i
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			c.hydrateAttrs(ctx, &records[i])
			return struct{}{}, nil
		}
	}
	parallel.Map(ctx, c.concurrency, tasks)
}

// hydrateAttrs loads the three attribute collections through the runner.
// Failures default the field rather than propagating.
func (c *Client) hydrateAttrs(ctx context.Context, p *domain.Product) {
	type attrSlot struct {
		endpoint string
		dest     *[]string
	}
	slots := []attrSlot{
		{"ingredients", &p.Ingredients},
		{"routes", &p.Routes},
		{"forms", &p.Forms},
	}

	tasks := make([]func(context.Context) ([]string, error), len(slots))
	for i, slot := range slots {
		slot := slot
		tasks[i] = func(ctx context.Context) ([]string, error) {
			return c.fetchAttr(ctx, p.Code, slot.endpoint)
		}
	}

	outcomes := parallel.Map(ctx, c.concurrency, tasks)
	for i, o := range outcomes {
		if o.Err != nil {
			if !errors.Is(o.Err, context.Canceled) {
				c.logger.DebugContext(ctx, "attribute hydration failed",
					"code", p.Code,
					"attribute", slots[i].endpoint,
					"error", o.Err,
				)
			}
			*slots[i].dest = []string{}
			continue
		}
		*slots[i].dest = o.Value
	}
}

func (c *Client) fetchAttr(ctx context.Context, code, endpoint string) ([]string, error) {
	u := fmt.Sprintf("%s/products/%s/%s", c.baseURL, url.PathEscape(code), endpoint)

	var rows []rawAttribute
	if err := c.fetcher.GetJSON(ctx, u, c.opts, &rows); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names, nil
}
