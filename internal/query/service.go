// Package query fans a single search out to every requested registry and
// merges the per-source outcomes. One slow or broken registry never fails the
// whole query; it is reported in the failed-sources list instead.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"drugwatch/internal/domain"
	"drugwatch/internal/query/metrics"
	domainerrors "drugwatch/pkg/domain-errors"
)

// ProductsSource is the structured product registry.
type ProductsSource interface {
	SearchByName(ctx context.Context, term string) ([]domain.Product, error)
	SearchByIngredient(ctx context.Context, term string) ([]domain.Product, error)
	GetByCode(ctx context.Context, code string) (domain.Product, error)
}

// ApprovalsSource is the bulk-cached decisions registry.
type ApprovalsSource interface {
	Search(ctx context.Context, term string, mode domain.SearchMode) ([]domain.Approval, error)
}

// FilingsSource is one under-review feed.
type FilingsSource interface {
	Search(ctx context.Context, term string) ([]domain.ReviewFiling, error)
}

type Service struct {
	products      ProductsSource
	approvals     ApprovalsSource
	reviewNew     FilingsSource
	reviewGeneric FilingsSource
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func NewService(
	products ProductsSource,
	approvals ApprovalsSource,
	reviewNew FilingsSource,
	reviewGeneric FilingsSource,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		products:      products,
		approvals:     approvals,
		reviewNew:     reviewNew,
		reviewGeneric: reviewGeneric,
		logger:        logger.With("component", "query"),
		metrics:       m,
	}
}

// Search runs the criteria against every requested source concurrently and
// waits for all of them to settle. Queries below the minimum term length are
// rejected before any source is touched.
func (s *Service) Search(ctx context.Context, c domain.Criteria) (*domain.SearchResult, error) {
	start := time.Now()
	c = c.Normalize()

	for _, src := range c.Sources {
		if !src.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest,
				fmt.Sprintf("unknown source %q", src))
		}
	}

	if c.TermTooShort() {
		s.observe("rejected", start)
		return domain.EmptyResult(), nil
	}

	res := domain.EmptyResult()
	errsBySource := make(map[domain.Source]error, len(c.Sources))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range c.Sources {
		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			err := s.searchOne(ctx, src, c, res, &mu)
			mu.Lock()
			errsBySource[src] = err
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	// Report outcomes in dispatch order, not completion order.
	for _, src := range c.Sources {
		if err := errsBySource[src]; err != nil {
			s.logger.WarnContext(ctx, "source failed", "source", src, "error", err)
			if s.metrics != nil {
				s.metrics.SourceFailures.WithLabelValues(string(src)).Inc()
			}
			res.Failed = append(res.Failed, src)
		} else {
			res.Succeeded = append(res.Succeeded, src)
		}
	}

	applyFilters(res, c.Filters)

	outcome := "ok"
	if len(res.Failed) > 0 {
		outcome = "partial"
	}
	s.observe(outcome, start)
	return res, nil
}

// GetProduct fetches one fully hydrated product by code.
func (s *Service) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	return s.products.GetByCode(ctx, code)
}

func (s *Service) searchOne(ctx context.Context, src domain.Source, c domain.Criteria, res *domain.SearchResult, mu *sync.Mutex) error {
	switch src {
	case domain.SourceProducts:
		products, err := s.searchProducts(ctx, c)
		if err != nil {
			return err
		}
		mu.Lock()
		res.Products = append(res.Products, products...)
		mu.Unlock()
	case domain.SourceApprovals:
		approvals, err := s.approvals.Search(ctx, c.Term, c.Mode)
		if err != nil {
			return err
		}
		mu.Lock()
		res.Approvals = append(res.Approvals, approvals...)
		mu.Unlock()
	case domain.SourceReviewNew:
		return s.searchFilings(ctx, s.reviewNew, c.Term, res, mu)
	case domain.SourceReviewGeneric:
		return s.searchFilings(ctx, s.reviewGeneric, c.Term, res, mu)
	}
	return nil
}

// searchProducts applies the mode. In automatic mode a failed or empty name
// lookup falls back to the ingredient lookup; the source only counts as
// failed when the fallback fails too.
func (s *Service) searchProducts(ctx context.Context, c domain.Criteria) ([]domain.Product, error) {
	switch c.Mode {
	case domain.ModeName:
		return s.products.SearchByName(ctx, c.Term)
	case domain.ModeIngredient:
		return s.products.SearchByIngredient(ctx, c.Term)
	}

	byName, err := s.products.SearchByName(ctx, c.Term)
	if err == nil && len(byName) > 0 {
		return byName, nil
	}
	if err != nil {
		s.logger.DebugContext(ctx, "name lookup failed, falling back to ingredient", "error", err)
	}
	return s.products.SearchByIngredient(ctx, c.Term)
}

func (s *Service) searchFilings(ctx context.Context, src FilingsSource, term string, res *domain.SearchResult, mu *sync.Mutex) error {
	filings, err := src.Search(ctx, term)
	if err != nil {
		return err
	}
	mu.Lock()
	res.Filings = append(res.Filings, filings...)
	mu.Unlock()
	return nil
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	s.metrics.ObserveDuration(time.Since(start))
}
