package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"drugwatch/internal/domain"
	"drugwatch/internal/novelty"
	"drugwatch/internal/watch"
	dErrors "drugwatch/pkg/domain-errors"
	"drugwatch/pkg/platform/httputil"
	"drugwatch/pkg/requestcontext"
)

// defaultOwner scopes watches when the caller supplies no owner. There is no
// authentication layer; owner is an organizational label, not a principal.
const defaultOwner = "default"

// Service defines the watch operations the handler needs.
type Service interface {
	Create(ctx context.Context, owner, name string, c domain.Criteria) (watch.Watch, error)
	Get(ctx context.Context, id string) (watch.Watch, error)
	List(ctx context.Context, owner string) ([]watch.Watch, error)
	Delete(ctx context.Context, id string) error
	Run(ctx context.Context, id string) (*novelty.AnnotatedResult, error)
	MarkViewed(ctx context.Context, id string) (watch.Watch, error)
}

// Handler wires watch endpoints to the watch service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a watch handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts watch endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/watches", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/run", h.HandleRun)
		r.Post("/{id}/viewed", h.HandleMarkViewed)
	})
}

// CreateRequest is the wire shape for POST /watches.
type CreateRequest struct {
	Owner    string          `json:"owner,omitempty"`
	Name     string          `json:"name"`
	Criteria domain.Criteria `json:"criteria"`
}

// HandleCreate handles POST /watches requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Owner == "" {
		req.Owner = defaultOwner
	}

	created, err := h.service.Create(ctx, req.Owner, req.Name, req.Criteria)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleList handles GET /watches?owner= requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = defaultOwner
	}

	watches, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "watch list failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"owner", owner,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "listing watches failed", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, watches)
}

// HandleGet handles GET /watches/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	got, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, got)
}

// HandleDelete handles DELETE /watches/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRun handles POST /watches/{id}/run requests.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	res, err := h.service.Run(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "watch run failed",
				"request_id", requestcontext.RequestID(ctx),
				"watch_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleMarkViewed handles POST /watches/{id}/viewed requests.
func (h *Handler) HandleMarkViewed(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.MarkViewed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}
