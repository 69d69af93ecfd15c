// Package bulkcache owns the one registry whose useful access pattern is the
// entire dataset. It warms up in the background, reports progress to
// subscribers, and swaps complete snapshots in atomically so readers never
// observe a half-built cache.
package bulkcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"drugwatch/internal/fetch"
	"drugwatch/internal/rescache"
	"drugwatch/pkg/platform/sentinel"
)

// Manager is the explicit cache-service object: constructed once at startup
// and passed to whatever needs the bulk source. State machine:
// idle → loading → ready, loading → error on failure, ready → loading once
// the TTL has expired and a new warm-up is requested. A second Ensure while
// loading attaches to the in-flight load instead of starting another.
type Manager struct {
	baseURL string
	fetcher *rescache.CachingFetcher
	opts    fetch.Options
	ttl     time.Duration
	logger  *slog.Logger

	current atomic.Pointer[Snapshot]

	mu       sync.Mutex
	progress Progress
	loading  bool
	done     chan struct{}
	subs     map[int]func(Progress)
	nextSub  int

	now func() time.Time
}

func NewManager(baseURL string, fetcher *rescache.CachingFetcher, opts fetch.Options, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		baseURL:  baseURL,
		fetcher:  fetcher,
		opts:     opts,
		ttl:      ttl,
		logger:   logger.With("component", "bulkcache"),
		progress: Progress{Status: StatusIdle, TotalSteps: len(datasetOrder)},
		subs:     make(map[int]func(Progress)),
		now:      time.Now,
	}
}

// Ready reports whether a snapshot exists and is inside its TTL.
func (m *Manager) Ready() bool {
	snap := m.current.Load()
	return snap != nil && m.now().Sub(snap.builtAt) < m.ttl
}

// Last returns the most recent complete snapshot regardless of TTL, or nil.
// Stale-but-valid data survives a failed refresh until explicitly cleared.
func (m *Manager) Last() *Snapshot {
	return m.current.Load()
}

// Progress returns the current warm-up state.
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// StartBackground fires a load if one is not already ready or in flight and
// returns immediately.
func (m *Manager) StartBackground() {
	if m.Ready() {
		return
	}
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return
	}
	m.beginLoadLocked()
	m.mu.Unlock()
}

// Ensure returns the ready snapshot, waiting for the in-flight load (or
// starting one) when necessary. Waiting callers do not block each other.
func (m *Manager) Ensure(ctx context.Context) (*Snapshot, error) {
	if m.Ready() {
		return m.current.Load(), nil
	}

	m.mu.Lock()
	var done chan struct{}
	if m.loading {
		done = m.done
	} else {
		done = m.beginLoadLocked()
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	if m.Ready() {
		return m.current.Load(), nil
	}
	m.mu.Lock()
	errMsg := m.progress.Error
	m.mu.Unlock()
	if errMsg != "" {
		return nil, fmt.Errorf("%w: %s", sentinel.ErrUnavailable, errMsg)
	}
	return nil, sentinel.ErrNotReady
}

// Subscribe registers a progress listener. The listener immediately receives
// the current state, then every update until unsubscribed. The returned
// unsubscribe handle is idempotent and does not affect other subscribers.
func (m *Manager) Subscribe(fn func(Progress)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	cur := m.progress
	m.mu.Unlock()

	fn(cur)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Clear drops the snapshot and resets progress to idle.
func (m *Manager) Clear() {
	m.current.Store(nil)
	m.publish(Progress{Status: StatusIdle, TotalSteps: len(datasetOrder)})
}

// beginLoadLocked flips the manager into loading and launches the load on a
// detached context: an abandoned HTTP caller must not cancel a warm-up other
// callers are waiting on. Caller holds m.mu.
func (m *Manager) beginLoadLocked() chan struct{} {
	m.loading = true
	m.done = make(chan struct{})
	done := m.done
	go m.load(context.Background(), done)
	return done
}

func (m *Manager) load(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
		close(done)
	}()

	start := m.now()
	m.logger.Info("bulk warm-up started")

	var raw rawDatasets
	targets := map[string]any{
		datasetApprovals:   &raw.approvals,
		datasetIngredients: &raw.ingredients,
		datasetRoutes:      &raw.routes,
		datasetForms:       &raw.forms,
		datasetCompanies:   &raw.companies,
	}

	for i, name := range datasetOrder {
		m.publish(Progress{
			Status:         StatusLoading,
			CompletedSteps: i,
			TotalSteps:     len(datasetOrder),
			Message:        fmt.Sprintf("fetching %s dataset", name),
		})

		u := fmt.Sprintf("%s/datasets/%s", m.baseURL, name)
		if err := m.fetcher.GetJSON(ctx, u, m.opts, targets[name]); err != nil {
			// Abort the whole load; a previously-ready snapshot stays
			// usable for readers that still tolerate its age.
			loadsTotal.WithLabelValues("error").Inc()
			m.logger.Error("bulk warm-up failed", "dataset", name, "error", err)
			m.publish(Progress{
				Status:         StatusError,
				CompletedSteps: i,
				TotalSteps:     len(datasetOrder),
				Message:        fmt.Sprintf("fetching %s dataset failed", name),
				Error:          err.Error(),
			})
			return
		}
	}

	snap := build(raw, m.now())
	m.current.Store(snap)

	loadsTotal.WithLabelValues("ok").Inc()
	recordsGauge.Set(float64(snap.Size()))
	m.logger.Info("bulk warm-up complete",
		"records", snap.Size(),
		"duration_ms", m.now().Sub(start).Milliseconds(),
	)
	m.publish(Progress{
		Status:         StatusReady,
		CompletedSteps: len(datasetOrder),
		TotalSteps:     len(datasetOrder),
		Message:        fmt.Sprintf("%d approvals indexed", snap.Size()),
	})
}

// publish records the new progress and notifies subscribers outside the
// lock so a listener can call back into the manager.
func (m *Manager) publish(p Progress) {
	m.mu.Lock()
	m.progress = p
	listeners := make([]func(Progress), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}
