// Package watch manages saved searches and their per-source seen state. The
// seen state lives with the watch so any instance can run it; marking a watch
// viewed folds the latest run's record keys into the seen set.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"drugwatch/internal/domain"
	"drugwatch/internal/events"
	"drugwatch/internal/novelty"
	dErrors "drugwatch/pkg/domain-errors"
	"drugwatch/pkg/platform/sentinel"
)

// Searcher runs the unified query for a watch's criteria.
type Searcher interface {
	Search(ctx context.Context, c domain.Criteria) (*domain.SearchResult, error)
}

type Service struct {
	store     Store
	search    Searcher
	publisher *events.Publisher
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store Store, search Searcher, publisher *events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		search:    search,
		publisher: publisher,
		logger:    logger.With("component", "watch"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create validates and persists a new watch.
func (s *Service) Create(ctx context.Context, owner, name string, c domain.Criteria) (Watch, error) {
	if strings.TrimSpace(name) == "" {
		return Watch{}, dErrors.New(dErrors.CodeBadRequest, "watch name is required")
	}
	if c.TermTooShort() {
		return Watch{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("search term must be at least %d characters", domain.MinTermLength))
	}
	for _, src := range c.Sources {
		if !src.Valid() {
			return Watch{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown source %q", src))
		}
	}

	now := s.now()
	w := Watch{
		ID:        s.newID(),
		Owner:     owner,
		Name:      strings.TrimSpace(name),
		Criteria:  c.Normalize(),
		Seen:      novelty.SeenState{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, w); err != nil {
		return Watch{}, fmt.Errorf("create watch: %w", err)
	}
	s.logger.InfoContext(ctx, "watch created", "watch_id", w.ID, "owner", owner, "term", c.Term)
	return w, nil
}

func (s *Service) Get(ctx context.Context, id string) (Watch, error) {
	w, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Watch{}, dErrors.New(dErrors.CodeNotFound, "watch not found")
	}
	return w, err
}

func (s *Service) List(ctx context.Context, owner string) ([]Watch, error) {
	return s.store.ListByOwner(ctx, owner)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "watch not found")
	}
	return err
}

// Run executes the watch's criteria, annotates the result against the
// watch's seen state, and records what was observed. New records are emitted
// as novelty events. The seen state itself only advances on MarkViewed.
func (s *Service) Run(ctx context.Context, id string) (*novelty.AnnotatedResult, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.search.Search(ctx, w.Criteria)
	if err != nil {
		return nil, err
	}

	annotated := novelty.AnnotateResult(res, w.Seen)

	now := s.now()
	w.LastObserved = observedKeys(res)
	w.LastRunAt = &now
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("record watch run: %w", err)
	}

	s.emitNovelty(ctx, w, annotated)
	return annotated, nil
}

// MarkViewed folds the most recent run's record keys into the seen state and
// advances lastViewedAt for every source the watch queries.
func (s *Service) MarkViewed(ctx context.Context, id string) (Watch, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return Watch{}, err
	}
	if w.LastRunAt == nil {
		return Watch{}, dErrors.New(dErrors.CodeConflict, "watch has never been run")
	}

	now := s.now()
	if w.Seen == nil {
		w.Seen = novelty.SeenState{}
	}
	for _, src := range w.Criteria.Sources {
		prev := w.Seen[src]
		w.Seen[src] = novelty.SeenEntries{
			LastViewedAt: &now,
			IDs:          union(prev.IDs, w.LastObserved[src]),
		}
	}
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		return Watch{}, fmt.Errorf("mark watch viewed: %w", err)
	}
	return w, nil
}

func (s *Service) emitNovelty(ctx context.Context, w Watch, res *novelty.AnnotatedResult) {
	if s.publisher == nil {
		return
	}
	emit := func(src domain.Source, key, title string, eventTime time.Time) {
		s.publisher.Emit(ctx, events.NoveltyEvent{
			WatchID:   w.ID,
			Owner:     w.Owner,
			Source:    src,
			RecordKey: key,
			Title:     title,
			EventTime: eventTime,
		})
	}
	for _, a := range res.Products {
		if a.IsNew {
			emit(domain.SourceProducts, a.Record.Code, a.Record.Name, a.Record.UpdatedAt)
		}
	}
	for _, a := range res.Approvals {
		if a.IsNew {
			emit(domain.SourceApprovals, a.Record.Number, a.Record.BrandName, a.Record.ApprovedAt)
		}
	}
	for _, a := range res.Filings {
		if a.IsNew {
			emit(a.Record.Feed, a.Record.NoveltyKey(), a.Record.IngredientName, a.Record.SubmittedAt)
		}
	}
}

// observedKeys collects every returned record key, per source.
func observedKeys(res *domain.SearchResult) map[domain.Source][]string {
	out := make(map[domain.Source][]string)
	for _, p := range res.Products {
		out[domain.SourceProducts] = append(out[domain.SourceProducts], p.NoveltyKey())
	}
	for _, a := range res.Approvals {
		out[domain.SourceApprovals] = append(out[domain.SourceApprovals], a.NoveltyKey())
	}
	for _, f := range res.Filings {
		out[f.Feed] = append(out[f.Feed], f.NoveltyKey())
	}
	return out
}

func union(prev, add []string) []string {
	set := make(map[string]struct{}, len(prev))
	out := make([]string, 0, len(prev)+len(add))
	for _, id := range prev {
		set[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range add {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
