package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"drugwatch/internal/domain"
	"drugwatch/internal/novelty"
	dErrors "drugwatch/pkg/domain-errors"
	"drugwatch/pkg/platform/httputil"
	"drugwatch/pkg/platform/sentinel"
	"drugwatch/pkg/requestcontext"
)

// Service defines the query operations the handler needs.
type Service interface {
	Search(ctx context.Context, c domain.Criteria) (*domain.SearchResult, error)
	GetProduct(ctx context.Context, code string) (domain.Product, error)
}

// Handler wires search endpoints to the query service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a query handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts query endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/search", h.HandleSearch)
	r.Get("/products/{code}", h.HandleGetProduct)
}

// SearchRequest is the wire shape for POST /search. Seen state is optional;
// when the caller supplies none, every record is flagged new.
type SearchRequest struct {
	Term    string            `json:"term"`
	Mode    domain.SearchMode `json:"mode,omitempty"`
	Sources []domain.Source   `json:"sources,omitempty"`
	Filters domain.Filters    `json:"filters,omitempty"`
	Seen    novelty.SeenState `json:"seen,omitempty"`
}

// HandleSearch handles POST /search requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[SearchRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.service.Search(ctx, domain.Criteria{
		Term:    req.Term,
		Mode:    req.Mode,
		Sources: req.Sources,
		Filters: req.Filters,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "search failed",
			"request_id", requestcontext.RequestID(ctx),
			"term", req.Term,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, novelty.AnnotateResult(res, req.Seen))
}

// HandleGetProduct handles GET /products/{code} requests.
func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := chi.URLParam(r, "code")
	if code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing product code"))
		return
	}

	p, err := h.service.GetProduct(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "product not found"))
			return
		}
		h.logger.ErrorContext(ctx, "product lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"code", code,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "product lookup failed", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, p)
}
