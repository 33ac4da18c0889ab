package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/config"
	"github.com/milodocs/pagekit/search"
	"github.com/milodocs/pagekit/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Runtime.ReactiveDiscovery = false
	cfg.Search.DataFile = ""
	cfg.Server.ContentDir = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig(t)
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemory()
	}
	return New(opts)
}

func testIndex(t *testing.T) *search.Index {
	t.Helper()
	ix, err := search.New(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	require.NoError(t, ix.IndexDocuments([]search.Document{
		{ID: "/docs/install/", Title: "Installation", Description: "Getting the binary", Body: "Download and install the release binary.", Section: "docs"},
		{ID: "/docs/config/", Title: "Configuration", Description: "Tuning the runtime", Body: "Configuration lives in a YAML file.", Section: "docs"},
	}))
	return ix
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, Options{Index: testIndex(t)})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Healthy bool `json:"healthy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Healthy)
}

func TestChatProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "how do I install", r.URL.Query().Get("query"))
		json.NewEncoder(w).Encode(map[string]string{"answer": "download the binary"})
	}))
	defer upstream.Close()

	s := newTestServer(t, Options{
		Chat: askdocs.NewClient(askdocs.ClientOptions{ChatURL: upstream.URL}),
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat?query=how+do+I+install", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "download the binary", resp["answer"])
}

func TestChatRequiresQuery(t *testing.T) {
	s := newTestServer(t, Options{
		Chat: askdocs.NewClient(askdocs.ClientOptions{ChatURL: "http://127.0.0.1:1"}),
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarizeProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"summarization": "short version"})
	}))
	defer upstream.Close()

	s := newTestServer(t, Options{
		Chat: askdocs.NewClient(askdocs.ClientOptions{SummarizeURL: upstream.URL}),
	})

	body := strings.NewReader(`{"context": "a very long page"}`)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/summarize", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "short version", resp["summarization"])
}

func TestSearchRoute(t *testing.T) {
	s := newTestServer(t, Options{Index: testIndex(t)})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=install", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string          `json:"query"`
		Results []search.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "install", resp.Query)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "/docs/install/", resp.Results[0].ID)
}

func TestRoutesAbsentWithoutServices(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, target := range []string{"/api/chat?query=x", "/api/search?q=x"} {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestPreferencesCRUD(t *testing.T) {
	s := newTestServer(t, Options{})
	router := s.Router()

	put := httptest.NewRequest(http.MethodPut, "/api/preferences/pref-theme", strings.NewReader("dark"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, put)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/pref-theme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "dark", got["value"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var keys struct {
		Keys []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Contains(t, keys.Keys, "pref-theme")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/preferences/pref-theme", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/pref-theme", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const enhanceablePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Install</title></head>
<body>
  <button id="theme-toggle" data-component="theme-toggle">Theme</button>
  <article id="content"><h2 id="intro">Intro</h2></article>
</body>
</html>`

func TestPageEnhancement(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Server.ContentDir, "index.html"), []byte(enhanceablePage), 0o644))

	s := newTestServer(t, Options{Config: cfg})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "data-pk-instance")
}

func TestPageCacheServesStaleWithinTTL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.PageCacheTTL = time.Minute
	page := filepath.Join(cfg.Server.ContentDir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(enhanceablePage), 0o644))

	s := newTestServer(t, Options{Config: cfg})
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()

	// The file changes on disk but the cached enhancement is still served.
	require.NoError(t, os.WriteFile(page, []byte("<html><body>changed</body></html>"), 0o644))

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.String())
}

func TestPageNotFound(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/missing.html", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageTraversalStaysInContentDir(t *testing.T) {
	cfg := testConfig(t)
	secret := filepath.Join(filepath.Dir(cfg.Server.ContentDir), "secret.html")
	require.NoError(t, os.WriteFile(secret, []byte("<html></html>"), 0o644))

	s := newTestServer(t, Options{Config: cfg})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/x", nil)
	req.URL.Path = "/pages/../secret.html"
	s.Router().ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t, Options{})

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The subscription lands shortly after the handshake, so emit until a
	// frame arrives.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Bus().Emit("component:theme-toggle:changed", map[string]string{"theme": "dark"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Channel   string            `json:"channel"`
		Payload   map[string]string `json:"payload"`
		Timestamp int64             `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "component:theme-toggle:changed", frame.Channel)
	assert.Equal(t, "dark", frame.Payload["theme"])
	assert.Positive(t, frame.Timestamp)
}
