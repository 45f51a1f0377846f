package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/domain"
	"NewsShell/internal/events"
	"NewsShell/internal/infrastructure/pagemeta"
	"NewsShell/internal/pool"
	"NewsShell/internal/testutil"
)

type fakeShell struct {
	mu        sync.Mutex
	navigated []domain.NavigationEvent
	sites     []domain.CallSite
	selected  []int
	navErr    error
}

func (f *fakeShell) Decide(ev domain.NavigationEvent) domain.Decision {
	return domain.Decision{ID: "d1", Action: domain.ActionAllow, Reason: "dry:" + ev.RequestedURL}
}

func (f *fakeShell) Navigate(_ context.Context, site domain.CallSite, ev domain.NavigationEvent) (domain.Decision, error) {
	if f.navErr != nil {
		return domain.Decision{}, f.navErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sites = append(f.sites, site)
	f.navigated = append(f.navigated, ev)
	return domain.Decision{ID: "d2", Action: domain.ActionCancel}, nil
}

func (f *fakeShell) Classify(string) domain.Classification {
	return domain.Classification{Category: domain.RouteMenu, Rule: "menu"}
}

func (f *fakeShell) Resolve(string) domain.BrowserTarget {
	return domain.TargetExternalBrowser
}

func (f *fakeShell) Tabs(context.Context) ([]domain.SurfaceState, int, error) {
	return []domain.SurfaceState{{ID: 1, Index: 0, URL: "https://www.hankyung.com/", Lifecycle: domain.StateLoaded}}, 0, nil
}

func (f *fakeShell) Select(_ context.Context, index int) error {
	if index > 4 {
		return fmt.Errorf("select: %w", pool.ErrIndexOutOfRange)
	}
	f.mu.Lock()
	f.selected = append(f.selected, index)
	f.mu.Unlock()
	return nil
}

func (f *fakeShell) Retry(context.Context, int) error { return nil }

func (f *fakeShell) MemoryPressure(context.Context) (int, error) { return 3, nil }

type fakeMeta struct{}

func (fakeMeta) Fetch(_ context.Context, pageURL string) (pagemeta.Meta, error) {
	if strings.Contains(pageURL, "broken") {
		return pagemeta.Meta{}, errors.New("upstream 500")
	}
	return pagemeta.Meta{URL: pageURL, Title: "Market wrap"}, nil
}

func newTestServer(t *testing.T, shell *fakeShell, hub *events.Hub) *httptest.Server {
	t.Helper()
	journal := &testutil.Journal{}
	require.NoError(t, journal.RecordDecision(context.Background(), domain.DecisionRecord{ID: "a", URL: "https://www.hankyung.com/"}))
	require.NoError(t, journal.RecordDecision(context.Background(), domain.DecisionRecord{ID: "b", URL: "https://www.hankyung.com/menu"}))

	deps := Deps{Shell: shell, Journal: journal, Meta: fakeMeta{}}
	if hub != nil {
		deps.Events = hub
	}
	srv := httptest.NewServer(New(deps).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestClassifyAndResolve(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)

	var classified struct {
		Classification domain.Classification `json:"classification"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/classify?url=https://www.hankyung.com/menu", &classified))
	assert.Equal(t, domain.RouteMenu, classified.Classification.Category)

	var resolved struct {
		Target domain.BrowserTarget `json:"target"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/resolve?url=https://youtu.be/x", &resolved))
	assert.Equal(t, domain.TargetExternalBrowser, resolved.Target)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/classify", nil))
}

func TestNavigateDefaultsCallSite(t *testing.T) {
	shell := &fakeShell{}
	srv := newTestServer(t, shell, nil)

	resp, err := http.Post(srv.URL+"/api/navigate", "application/json",
		strings.NewReader(`{"url":"https://www.hankyung.com/","userInitiated":true,"surface":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	shell.mu.Lock()
	defer shell.mu.Unlock()
	require.Len(t, shell.navigated, 1)
	assert.Equal(t, domain.CallSiteDetail, shell.sites[0])
	assert.Equal(t, domain.SurfaceID(2), shell.navigated[0].SourceSurface)
	assert.True(t, shell.navigated[0].IsUserInitiated)
}

func TestNavigateRejectsBadBodies(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)

	for _, body := range []string{`{`, `{"url":"  "}`} {
		resp, err := http.Post(srv.URL+"/api/navigate", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestNavigateUnavailable(t *testing.T) {
	srv := newTestServer(t, &fakeShell{navErr: errors.New("uiloop: stopped")}, nil)

	resp, err := http.Post(srv.URL+"/api/navigate", "application/json", strings.NewReader(`{"url":"https://a.example/"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDecideIsDryRun(t *testing.T) {
	shell := &fakeShell{}
	srv := newTestServer(t, shell, nil)

	resp, err := http.Post(srv.URL+"/api/decide", "application/json", strings.NewReader(`{"url":"https://www.hankyung.com/economy"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var d domain.Decision
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	assert.Equal(t, "dry:https://www.hankyung.com/economy", d.Reason)
	shell.mu.Lock()
	assert.Empty(t, shell.navigated)
	shell.mu.Unlock()
}

func TestTabsActivateAndMemoryPressure(t *testing.T) {
	shell := &fakeShell{}
	srv := newTestServer(t, shell, nil)

	var tabs struct {
		Active   int                   `json:"active"`
		Surfaces []domain.SurfaceState `json:"surfaces"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tabs", &tabs))
	require.Len(t, tabs.Surfaces, 1)
	assert.Equal(t, domain.StateLoaded, tabs.Surfaces[0].Lifecycle)

	post := func(path string) int {
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, post("/api/tabs/3/activate"))
	assert.Equal(t, http.StatusNotFound, post("/api/tabs/9/activate"))
	assert.Equal(t, http.StatusBadRequest, post("/api/tabs/x/activate"))
	assert.Equal(t, http.StatusNoContent, post("/api/tabs/1/retry"))
	shell.mu.Lock()
	assert.Equal(t, []int{3}, shell.selected)
	shell.mu.Unlock()

	resp, err := http.Post(srv.URL+"/api/memory-pressure", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var pressure map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pressure))
	assert.Equal(t, 3, pressure["surfaces"])
}

func TestJournal(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)

	var records []domain.DecisionRecord
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/journal?limit=1", &records))
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/journal?limit=-2", nil))
}

func TestPageMeta(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)

	var meta pagemeta.Meta
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/pagemeta?url=https://www.hankyung.com/economy", &meta))
	assert.Equal(t, "Market wrap", meta.Title)

	assert.Equal(t, http.StatusBadGateway, getJSON(t, srv.URL+"/api/pagemeta?url=https://broken.example/", nil))
}

func TestEventStream(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()
	srv := newTestServer(t, &fakeShell{}, hub)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?topic=" + events.TopicDecision
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep
	// publishing until the first frame arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(events.TopicActive, "ignored")
				hub.Publish(events.TopicDecision, map[string]string{"id": "d9"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Topic   string            `json:"topic"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.TopicDecision, got.Topic)
	assert.Equal(t, "d9", got.Payload["id"])
}

func TestEventStreamDisabled(t *testing.T) {
	srv := newTestServer(t, &fakeShell{}, nil)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/ws/events", nil))
}
