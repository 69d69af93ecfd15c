// Package review adapts the two unstructured "filed but not yet decided"
// feeds. Neither feed has a machine API; a server-side proxy extracts the
// rows into JSON. The whole feed is fetched as one flat list, cached at
// registry scope with a coarse TTL (the feeds change monthly), and filtered
// in memory.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"drugwatch/internal/domain"
	"drugwatch/internal/fetch"
	"drugwatch/internal/rescache"
)

// Feed selects which under-review feed a client serves.
type Feed string

const (
	FeedNew     Feed = "new"     // new drug applications
	FeedGeneric Feed = "generic" // generic drug applications
)

func (f Feed) Source() domain.Source {
	if f == FeedGeneric {
		return domain.SourceReviewGeneric
	}
	return domain.SourceReviewNew
}

// Client serves one feed through the extraction proxy.
type Client struct {
	proxyBaseURL string
	feed         Feed
	fetcher      *rescache.CachingFetcher
	opts         fetch.Options
	logger       *slog.Logger
}

func New(proxyBaseURL string, feed Feed, fetcher *rescache.CachingFetcher, opts fetch.Options, logger *slog.Logger) *Client {
	return &Client{
		proxyBaseURL: proxyBaseURL,
		feed:         feed,
		fetcher:      fetcher,
		opts:         opts,
		logger:       logger.With("component", "review", "feed", string(feed)),
	}
}

// rawFiling mirrors one proxy-extracted row.
type rawFiling struct {
	IngredientName  string `json:"ingredientName"`
	Applicant       string `json:"applicant"`
	TherapeuticArea string `json:"therapeuticArea"`
	Period          string `json:"period"`
	SubmittedAt     string `json:"submittedAt"`
}

// Search fetches the flat feed (cached at registry scope) and filters in
// memory by substring across name, applicant, and therapeutic area.
func (c *Client) Search(ctx context.Context, term string) ([]domain.ReviewFiling, error) {
	all, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	matches := make([]domain.ReviewFiling, 0)
	for _, f := range all {
		if containsFold(f.IngredientName, needle) ||
			containsFold(f.Applicant, needle) ||
			containsFold(f.TherapeuticArea, needle) {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

// All returns every filing currently in the feed.
func (c *Client) All(ctx context.Context) ([]domain.ReviewFiling, error) {
	return c.fetchAll(ctx)
}

func (c *Client) fetchAll(ctx context.Context) ([]domain.ReviewFiling, error) {
	u := fmt.Sprintf("%s?feed=%s", c.proxyBaseURL, c.feed)

	var rows []rawFiling
	if err := c.fetcher.GetJSON(ctx, u, c.opts, &rows); err != nil {
		return nil, fmt.Errorf("review feed %s: %w", c.feed, err)
	}

	src := c.feed.Source()
	filings := make([]domain.ReviewFiling, 0, len(rows))
	for _, r := range rows {
		filings = append(filings, domain.ReviewFiling{
			IngredientName:  r.IngredientName,
			Applicant:       r.Applicant,
			TherapeuticArea: r.TherapeuticArea,
			Period:          r.Period,
			SubmittedAt:     parseDate(r.SubmittedAt),
			Feed:            src,
		})
	}
	return filings, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
