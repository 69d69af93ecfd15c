package bulkcache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"drugwatch/internal/fetch"
	"drugwatch/internal/platform/logger"
	"drugwatch/internal/rescache"
	"drugwatch/pkg/platform/sentinel"
)

// fakeBulkRegistry serves the five raw datasets. loadRounds counts complete
// approval-dataset fetches, i.e. distinct underlying loads.
type fakeBulkRegistry struct {
	srv        *httptest.Server
	loadRounds int32
	failing    atomic.Bool
	gate       chan struct{} // non-nil blocks the first dataset until closed
}

func newFakeBulkRegistry(t *testing.T) *fakeBulkRegistry {
	t.Helper()
	f := &fakeBulkRegistry{}

	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/approvals", func(w http.ResponseWriter, r *http.Request) {
		if f.gate != nil {
			<-f.gate
		}
		if f.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		atomic.AddInt32(&f.loadRounds, 1)
		writeJSON(w, []map[string]string{
			{"number": "30100AMX", "brandName": "Loxonin", "genericName": "loxoprofen",
				"applicant": "Daiichi Sankyo", "categoryCode": "1149", "status": "approved",
				"approvedAt": "2026-04-01"},
			{"number": "30200AMX", "brandName": "Calonal", "genericName": "acetaminophen",
				"applicant": "Ayumi", "categoryCode": "1141", "status": "approved",
				"approvedAt": "2026-05-15"},
		})
	})
	mux.HandleFunc("/datasets/ingredients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{
			{"approvalNumber": "30100AMX", "name": "loxoprofen sodium"},
			{"approvalNumber": "30200AMX", "name": "acetaminophen"},
		})
	})
	mux.HandleFunc("/datasets/routes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"approvalNumber": "30100AMX", "name": "oral"}})
	})
	mux.HandleFunc("/datasets/forms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"approvalNumber": "30100AMX", "name": "tablet"}})
	})
	mux.HandleFunc("/datasets/companies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"approvalNumber": "30100AMX", "name": "Daiichi Sankyo"}})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newManager builds a manager with a tiny response-cache TTL so every load
// really hits the fake registry.
func newManager(t *testing.T, baseURL string, ttl time.Duration) *Manager {
	t.Helper()
	store := rescache.NewMemoryStore(rescache.Config{TTL: time.Nanosecond, MaxEntries: 10})
	fc := fetch.NewClient(fetch.Options{MaxRetries: -1}, 0, logger.Discard())
	fetcher := rescache.NewCachingFetcher(fc, store, logger.Discard())
	return NewManager(baseURL, fetcher, fetch.Options{}, ttl, logger.Discard())
}

func TestEnsureLoadsAndIndexes(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	m := newManager(t, reg.srv.URL, time.Hour)

	snap, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Size())
	require.True(t, m.Ready())

	a, ok := snap.GetByNumber("30100AMX")
	require.True(t, ok)
	require.Equal(t, []string{"loxoprofen sodium"}, a.Ingredients)
	require.Equal(t, []string{"oral"}, a.Routes)
	require.Equal(t, []string{"tablet"}, a.Forms)
	require.Equal(t, []string{"Daiichi Sankyo"}, a.Companies)

	require.Len(t, snap.SearchByName("loxonin"), 1)
	require.Len(t, snap.SearchByIngredient("loxoprofen"), 1)
	require.Empty(t, snap.SearchByName("zzz"))
}

func TestEnsureIsIdempotentWhenFresh(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	m := newManager(t, reg.srv.URL, time.Hour)

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	_, err = m.Ensure(context.Background())
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&reg.loadRounds))
}

func TestConcurrentEnsureDedupsInFlightLoad(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	reg.gate = make(chan struct{})
	m := newManager(t, reg.srv.URL, time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Ensure(context.Background())
		}(i)
	}

	// Let every caller attach to the in-flight load, then release it.
	time.Sleep(50 * time.Millisecond)
	close(reg.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&reg.loadRounds),
		"concurrent Ensure calls must share one underlying load")
}

func TestFailedLoadTransitionsToErrorAndKeepsLastSnapshot(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	m := newManager(t, reg.srv.URL, time.Hour)

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	firstBuild := m.Last().BuiltAt()

	// Expire the snapshot, then make the refresh fail.
	clock := time.Now().Add(2 * time.Hour)
	m.now = func() time.Time { return clock }
	reg.failing.Store(true)

	_, err = m.Ensure(context.Background())
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	require.Equal(t, StatusError, m.Progress().Status)

	// Expired for Ready purposes, but the last snapshot is still readable.
	require.False(t, m.Ready())
	require.NotNil(t, m.Last())
	require.Equal(t, firstBuild, m.Last().BuiltAt())
	require.Equal(t, 2, m.Last().Size())
}

func TestRetryAfterErrorStartsFromScratch(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	reg.failing.Store(true)
	m := newManager(t, reg.srv.URL, time.Hour)

	_, err := m.Ensure(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, m.Progress().Status)
	require.Nil(t, m.Last())

	reg.failing.Store(false)
	snap, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Size())
	require.Equal(t, StatusReady, m.Progress().Status)
}

func TestSubscribeDeliversCurrentStateAndUpdates(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	m := newManager(t, reg.srv.URL, time.Hour)

	var mu sync.Mutex
	var seen []Progress
	unsub := m.Subscribe(func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	mu.Lock()
	require.Len(t, seen, 1, "subscriber must immediately receive current state")
	require.Equal(t, StatusIdle, seen[0].Status)
	mu.Unlock()

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)

	mu.Lock()
	last := seen[len(seen)-1]
	require.Equal(t, StatusReady, last.Status)
	require.Equal(t, len(datasetOrder), last.CompletedSteps)
	// One loading update per dataset plus idle plus ready.
	require.Len(t, seen, len(datasetOrder)+2)
	mu.Unlock()

	unsub()
	unsub() // idempotent
	m.Clear()

	mu.Lock()
	require.Equal(t, len(datasetOrder)+2, len(seen), "no updates after unsubscribe")
	mu.Unlock()
}

func TestStartBackgroundDoesNotBlock(t *testing.T) {
	reg := newFakeBulkRegistry(t)
	reg.gate = make(chan struct{})
	m := newManager(t, reg.srv.URL, time.Hour)

	start := time.Now()
	m.StartBackground()
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.Eventually(t, func() bool {
		return m.Progress().Status == StatusLoading
	}, time.Second, 5*time.Millisecond)

	close(reg.gate)
	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&reg.loadRounds))
}
