package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"drugwatch/internal/domain"
	"drugwatch/internal/platform/logger"
	domainerrors "drugwatch/pkg/domain-errors"
)

type stubProducts struct {
	nameCalls       atomic.Int32
	ingredientCalls atomic.Int32
	byName          []domain.Product
	byIngredient    []domain.Product
	nameErr         error
	ingredientErr   error
}

func (s *stubProducts) SearchByName(ctx context.Context, term string) ([]domain.Product, error) {
	s.nameCalls.Add(1)
	return s.byName, s.nameErr
}

func (s *stubProducts) SearchByIngredient(ctx context.Context, term string) ([]domain.Product, error) {
	s.ingredientCalls.Add(1)
	return s.byIngredient, s.ingredientErr
}

func (s *stubProducts) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	return domain.Product{}, errors.New("not implemented")
}

type stubApprovals struct {
	calls     atomic.Int32
	approvals []domain.Approval
	err       error
}

func (s *stubApprovals) Search(ctx context.Context, term string, mode domain.SearchMode) ([]domain.Approval, error) {
	s.calls.Add(1)
	return s.approvals, s.err
}

type stubFilings struct {
	calls   atomic.Int32
	filings []domain.ReviewFiling
	err     error
}

func (s *stubFilings) Search(ctx context.Context, term string) ([]domain.ReviewFiling, error) {
	s.calls.Add(1)
	return s.filings, s.err
}

type fixture struct {
	products  *stubProducts
	approvals *stubApprovals
	revNew    *stubFilings
	revGen    *stubFilings
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		products: &stubProducts{
			byName: []domain.Product{{Code: "1001", Name: "Loxonin"}},
		},
		approvals: &stubApprovals{
			approvals: []domain.Approval{{Number: "30100AMX", BrandName: "Loxonin"}},
		},
		revNew: &stubFilings{
			filings: []domain.ReviewFiling{{IngredientName: "loxoprofen", Feed: domain.SourceReviewNew}},
		},
		revGen: &stubFilings{},
	}
	f.svc = NewService(f.products, f.approvals, f.revNew, f.revGen, logger.Discard(), nil)
	return f
}

func TestSearchMergesAllSources(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Search(context.Background(), domain.Criteria{Term: "loxonin"})
	require.NoError(t, err)

	require.Len(t, res.Products, 1)
	require.Len(t, res.Approvals, 1)
	require.Len(t, res.Filings, 1)
	require.Equal(t, domain.AllSources(), res.Succeeded)
	require.Empty(t, res.Failed)
}

func TestSearchOneFailingSourceDoesNotFailTheRest(t *testing.T) {
	f := newFixture()
	f.approvals.err = errors.New("registry down")

	res, err := f.svc.Search(context.Background(), domain.Criteria{Term: "loxonin"})
	require.NoError(t, err)

	require.Len(t, res.Products, 1)
	require.Len(t, res.Filings, 1)
	require.Empty(t, res.Approvals)
	require.Equal(t, []domain.Source{domain.SourceApprovals}, res.Failed)
	require.Equal(t,
		[]domain.Source{domain.SourceProducts, domain.SourceReviewNew, domain.SourceReviewGeneric},
		res.Succeeded)
}

func TestSearchShortTermRejectedWithoutIO(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Search(context.Background(), domain.Criteria{Term: " a "})
	require.NoError(t, err)

	require.Equal(t, 0, res.Total())
	require.Empty(t, res.Succeeded)
	require.Zero(t, f.products.nameCalls.Load())
	require.Zero(t, f.approvals.calls.Load())
	require.Zero(t, f.revNew.calls.Load())
}

func TestSearchUnknownSourceIsBadRequest(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxonin",
		Sources: []domain.Source{"bogus"},
	})
	require.Error(t, err)
	require.Equal(t, domainerrors.CodeBadRequest, domainerrors.CodeOf(err))
}

func TestSearchOnlyRequestedSourcesAreQueried(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxonin",
		Sources: []domain.Source{domain.SourceApprovals},
	})
	require.NoError(t, err)

	require.Len(t, res.Approvals, 1)
	require.Zero(t, f.products.nameCalls.Load())
	require.Zero(t, f.revNew.calls.Load())
	require.Zero(t, f.revGen.calls.Load())
	require.Equal(t, []domain.Source{domain.SourceApprovals}, res.Succeeded)
}

func TestAutoModeNameHitSkipsIngredientLookup(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxonin",
		Sources: []domain.Source{domain.SourceProducts},
	})
	require.NoError(t, err)

	require.Equal(t, int32(1), f.products.nameCalls.Load())
	require.Zero(t, f.products.ingredientCalls.Load(),
		"a non-empty name lookup must short-circuit the fallback")
}

func TestAutoModeEmptyNameFallsBackToIngredient(t *testing.T) {
	f := newFixture()
	f.products.byName = nil
	f.products.byIngredient = []domain.Product{{Code: "2002", Name: "Generic Loxoprofen"}}

	res, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxoprofen",
		Sources: []domain.Source{domain.SourceProducts},
	})
	require.NoError(t, err)

	require.Equal(t, int32(1), f.products.ingredientCalls.Load())
	require.Len(t, res.Products, 1)
	require.Equal(t, "2002", res.Products[0].Code)
}

func TestAutoModeNameFailureFallsBackToIngredient(t *testing.T) {
	f := newFixture()
	f.products.nameErr = errors.New("name endpoint down")
	f.products.byIngredient = []domain.Product{{Code: "2002"}}

	res, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxoprofen",
		Sources: []domain.Source{domain.SourceProducts},
	})
	require.NoError(t, err)

	require.Len(t, res.Products, 1)
	require.Equal(t, []domain.Source{domain.SourceProducts}, res.Succeeded,
		"a successful fallback means the source succeeded")
}

func TestExplicitNameModeDoesNotFallBack(t *testing.T) {
	f := newFixture()
	f.products.byName = nil

	res, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxoprofen",
		Mode:    domain.ModeName,
		Sources: []domain.Source{domain.SourceProducts},
	})
	require.NoError(t, err)

	require.Empty(t, res.Products)
	require.Zero(t, f.products.ingredientCalls.Load())
}

func TestSearchAppliesFiltersAfterMerge(t *testing.T) {
	f := newFixture()
	f.products.byName = []domain.Product{
		{Code: "1001", Name: "Loxonin", Status: "approved"},
		{Code: "1002", Name: "Loxonin S", Status: "withdrawn"},
	}
	f.approvals.approvals = []domain.Approval{
		{Number: "30100AMX", Status: "approved"},
		{Number: "30200AMX", Status: "withdrawn"},
	}

	res, err := f.svc.Search(context.Background(), domain.Criteria{
		Term:    "loxonin",
		Filters: domain.Filters{Statuses: []string{"approved"}},
	})
	require.NoError(t, err)

	require.Len(t, res.Products, 1)
	require.Equal(t, "1001", res.Products[0].Code)
	require.Len(t, res.Approvals, 1)
	require.Equal(t, "30100AMX", res.Approvals[0].Number)
}

func TestSearchSettlesAllSourcesEvenWhenOneIsSlow(t *testing.T) {
	f := newFixture()
	f.svc = NewService(f.products, f.approvals, f.revNew,
		slowFilings{f.revGen, 50 * time.Millisecond}, logger.Discard(), nil)

	res, err := f.svc.Search(context.Background(), domain.Criteria{Term: "loxonin"})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 4, "the merge must wait for every source")
}

type slowFilings struct {
	inner *stubFilings
	delay time.Duration
}

func (s slowFilings) Search(ctx context.Context, term string) ([]domain.ReviewFiling, error) {
	time.Sleep(s.delay)
	return s.inner.Search(ctx, term)
}
