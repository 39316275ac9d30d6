package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chanmirror/internal/blobcache"
	"chanmirror/internal/filters"
	"chanmirror/internal/fourchan"
	"chanmirror/internal/history"
	"chanmirror/internal/logging"
	"chanmirror/internal/metastore"
	"chanmirror/internal/mirror"
	"chanmirror/internal/settings"
	"chanmirror/internal/testsupport"
)

func newRemoteStub(t *testing.T) *httptest.Server {
	t.Helper()
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/boards.json":
			w.Write([]byte(`{"boards":[{"board":"g","title":"Technology","ws_board":1}]}`))
		case r.URL.Path == "/g/catalog.json":
			w.Write([]byte(`[{"page":1,"threads":[
				{"no":1,"sub":"Test thread","tim":111},
				{"no":2,"sub":"Keep me","tim":222}
			]}]`))
		case r.URL.Path == "/g/thread/123.json":
			w.Write([]byte(`{"posts":[{"no":123,"sub":"Hello","tim":333,"ext":".png"}]}`))
		case strings.HasSuffix(r.URL.Path, ".jpg"), strings.HasSuffix(r.URL.Path, ".png"):
			w.Write([]byte("image-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(remote.Close)
	return remote
}

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	remote := newRemoteStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithRemoteBase(remote.URL, remote.URL))
	cfg.Remote.MaxRetries = 1
	logger := logging.NewNop()

	client, err := fourchan.New(cfg.Remote, logger)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	store, err := metastore.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	blobs, err := blobcache.New(cfg, client, logger)
	if err != nil {
		t.Fatalf("new blob cache: %v", err)
	}

	svc := mirror.New(cfg, client, store, blobs,
		filters.NewManager(cfg.FiltersPath(), logger),
		history.NewManager(cfg.HistoryPath(), cfg.History.MaxEntries, logger),
		settings.NewManager(cfg.SettingsPath(), logger),
		logger)

	d, err := New(cfg, svc, logger)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.Addr()
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d (body %s)", url, resp.StatusCode, wantStatus, body)
	}
	payload := make(map[string]any)
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return payload
}

func postJSON(t *testing.T, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d, want %d (body %s)", url, resp.StatusCode, wantStatus, raw)
	}
	payload := make(map[string]any)
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return payload
}

func TestBoardsEndpoint(t *testing.T) {
	_, base := startTestDaemon(t)

	payload := getJSON(t, base+"/api/boards", http.StatusOK)
	boards, ok := payload["boards"].([]any)
	if !ok || len(boards) != 1 {
		t.Fatalf("unexpected boards payload: %v", payload)
	}
	first, ok := boards[0].(map[string]any)
	if !ok || first["board"] != "g" {
		t.Fatalf("unexpected board entry: %v", boards[0])
	}
	if first["ws_board"] != true {
		t.Fatalf("worksafe flag missing from response: %v", first)
	}
}

func TestCatalogEndpointAppliesFilters(t *testing.T) {
	_, base := startTestDaemon(t)

	created := postJSON(t, base+"/api/filters/g", map[string]any{
		"keyword": "^test", "type": "subject", "regex": true, "enabled": true,
	}, http.StatusCreated)
	if created["id"].(float64) != 1 {
		t.Fatalf("unexpected created filter: %v", created)
	}

	payload := getJSON(t, base+"/api/catalog/g", http.StatusOK)
	threads, ok := payload["threads"].([]any)
	if !ok || len(threads) != 1 {
		t.Fatalf("filtered catalog should hold one thread: %v", payload)
	}
	first := threads[0].(map[string]any)
	if first["no"].(float64) != 2 {
		t.Fatalf("wrong thread survived the filter: %v", first)
	}
}

func TestThreadEndpointServesRawPayload(t *testing.T) {
	_, base := startTestDaemon(t)

	payload := getJSON(t, base+"/api/thread/g/123", http.StatusOK)
	posts, ok := payload["posts"].([]any)
	if !ok || len(posts) != 1 {
		t.Fatalf("unexpected thread payload: %v", payload)
	}

	// The visit lands in the history.
	hist := getJSON(t, base+"/api/history", http.StatusOK)
	entries, ok := hist["history"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("unexpected history payload: %v", hist)
	}

	resp, err := http.Get(base + "/api/thread/g/999")
	if err != nil {
		t.Fatalf("GET missing thread: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing thread: status %d, want 404", resp.StatusCode)
	}
}

func TestImageEndpointServesBytes(t *testing.T) {
	_, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/image/g/333s.jpg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "image-bytes" {
		t.Fatalf("unexpected image body %q", body)
	}
}

func TestDownloadEndpointGatedBySettings(t *testing.T) {
	_, base := startTestDaemon(t)

	payload := postJSON(t, base+"/api/download/g/333.png", nil, http.StatusForbidden)
	if msg, ok := payload["error"].(string); !ok || msg == "" {
		t.Fatalf("expected error body, got %v", payload)
	}

	postJSON(t, base+"/api/settings", map[string]any{"enableDownloadButton": true}, http.StatusOK)

	saved := postJSON(t, base+"/api/download/g/333.png", nil, http.StatusOK)
	if path, ok := saved["saved"].(string); !ok || path == "" {
		t.Fatalf("expected saved path, got %v", saved)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, base := startTestDaemon(t)

	defaults := getJSON(t, base+"/api/settings", http.StatusOK)
	if defaults["theme"] != "dark" {
		t.Fatalf("unexpected default settings: %v", defaults)
	}

	updated := postJSON(t, base+"/api/settings", map[string]any{"theme": "light"}, http.StatusOK)
	if updated["theme"] != "light" {
		t.Fatalf("settings update not reflected: %v", updated)
	}
}

func TestFilterLifecycleEndpoints(t *testing.T) {
	_, base := startTestDaemon(t)

	created := postJSON(t, base+"/api/filters/g", map[string]any{
		"keyword": "crypto", "type": "both", "enabled": true,
	}, http.StatusCreated)
	id := int(created["id"].(float64))

	listed := getJSON(t, base+"/api/filters/g", http.StatusOK)
	if items := listed["filters"].([]any); len(items) != 1 {
		t.Fatalf("unexpected filter list: %v", listed)
	}

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/filters/g/%d", base, id), nil)
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d, want 200", resp.StatusCode)
	}

	listed = getJSON(t, base+"/api/filters/g", http.StatusOK)
	if items := listed["filters"].([]any); len(items) != 0 {
		t.Fatalf("filter list should be empty, got %v", listed)
	}
}

func TestHistoryClearEndpoint(t *testing.T) {
	_, base := startTestDaemon(t)

	getJSON(t, base+"/api/thread/g/123", http.StatusOK)
	postJSON(t, base+"/api/history/clear", nil, http.StatusOK)

	hist := getJSON(t, base+"/api/history", http.StatusOK)
	if entries := hist["history"].([]any); len(entries) != 0 {
		t.Fatalf("history should be empty, got %v", hist)
	}
}

func TestCacheStatsAndClearEndpoints(t *testing.T) {
	_, base := startTestDaemon(t)

	getJSON(t, base+"/api/thread/g/123", http.StatusOK)

	stats := getJSON(t, base+"/api/cache/stats", http.StatusOK)
	meta, ok := stats["metadata"].(map[string]any)
	if !ok || meta["threads"].(float64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	postJSON(t, base+"/api/cache/clear", nil, http.StatusOK)

	stats = getJSON(t, base+"/api/cache/stats", http.StatusOK)
	meta = stats["metadata"].(map[string]any)
	if meta["threads"].(float64) != 0 {
		t.Fatalf("cache not cleared: %v", stats)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a generated X-Request-ID header")
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with request id: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("client request id not echoed, got %q", got)
	}
}
