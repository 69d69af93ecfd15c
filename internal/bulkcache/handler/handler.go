package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drugwatch/internal/bulkcache"
	"drugwatch/pkg/platform/httputil"
)

// Handler exposes the bulk cache warm-up lifecycle over HTTP.
type Handler struct {
	manager *bulkcache.Manager
	logger  *slog.Logger
}

// New constructs a bulk cache handler.
func New(manager *bulkcache.Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Register mounts cache endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cache/warm", h.HandleWarm)
	r.Get("/cache/status", h.HandleStatus)
	r.Get("/cache/progress", h.HandleProgress)
	r.Delete("/cache", h.HandleClear)
}

// StatusResponse describes the cache to clients. BuiltAt and Records refer to
// the last complete snapshot, which may be stale when Ready is false.
type StatusResponse struct {
	bulkcache.Progress
	Ready   bool       `json:"ready"`
	BuiltAt *time.Time `json:"builtAt,omitempty"`
	Records int        `json:"records"`
}

// HandleWarm handles POST /cache/warm. The warm-up runs detached; the caller
// gets an immediate 202 with the current progress and can follow the rest on
// the progress stream.
func (h *Handler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	h.manager.StartBackground()
	httputil.WriteJSON(w, http.StatusAccepted, h.status())
}

// HandleStatus handles GET /cache/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.status())
}

// HandleClear handles DELETE /cache requests.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.manager.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// HandleProgress handles GET /cache/progress as a server-sent event stream.
// The stream replays the current state, follows updates, and closes once the
// warm-up reaches a terminal state or the client disconnects.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Buffered so the manager's publish loop never blocks on a slow client.
	// One warm-up cycle emits far fewer events than the buffer holds.
	updates := make(chan bulkcache.Progress, 32)
	unsub := h.manager.Subscribe(func(p bulkcache.Progress) {
		select {
		case updates <- p:
		default:
		}
	})
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-updates:
			if err := writeEvent(w, p); err != nil {
				return
			}
			flusher.Flush()
			if p.Status == bulkcache.StatusReady || p.Status == bulkcache.StatusError {
				return
			}
		}
	}
}

func (h *Handler) status() StatusResponse {
	res := StatusResponse{
		Progress: h.manager.Progress(),
		Ready:    h.manager.Ready(),
	}
	if snap := h.manager.Last(); snap != nil {
		built := snap.BuiltAt()
		res.BuiltAt = &built
		res.Records = snap.Size()
	}
	return res
}

func writeEvent(w http.ResponseWriter, p bulkcache.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	return err
}
