package apihttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"movieshell/internal/catalog"
	"movieshell/internal/library"
	"movieshell/internal/paths"
	"movieshell/internal/subtitle"
)

const testCatalog = `{
  "movies": {
    "Example Movie 1": {
      "title": "A Fantastic Journey",
      "poster": "images/poster.png",
      "video_path": "movies/clip.mp4",
      "trailer_path": null,
      "year": 2023,
      "description": "A trip"
    },
    "No Title": {"video_path": "movies/missing.mkv"}
  },
  "series": {
    "Saga": {
      "title": "The Grand Saga",
      "seasons": {"1": {"episodes": {"E1": {"title": "Start", "video_path": "series/saga/e1.mp4", "duration": "45m"}}}}
    }
  }
}`

type testEnv struct {
	root   string
	video  []byte
	server *Server
	store  *catalog.Store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()
	root := t.TempDir()

	video := make([]byte, 1000)
	for i := range video {
		video[i] = byte(i % 251)
	}
	writeTestFile(t, filepath.Join(root, "movies", "clip.mp4"), video)
	writeTestFile(t, filepath.Join(root, "movies", "clip.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n"))
	writeTestFile(t, filepath.Join(root, "images", "poster.png"), []byte("\x89PNG\r\n\x1a\nfake"))
	writeTestFile(t, filepath.Join(root, "html", "index.html"), []byte("<html>shell</html>"))
	writeTestFile(t, filepath.Join(root, "about_page.json"), []byte(`{"app":"movieshell"}`))
	writeTestFile(t, filepath.Join(root, "notes.txt"), []byte("not served"))
	writeTestFile(t, filepath.Join(root, "movies.json"), []byte(testCatalog))
	if err := os.MkdirAll(filepath.Join(root, "movies", "folder.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	resolver, err := paths.NewResolver(paths.Config{BundledRoot: root, UserRoot: root, BaseURL: "http://localhost:8000"})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	fs := afero.NewOsFs()
	env := &testEnv{root: root, video: video}
	env.store = catalog.NewStore(fs, filepath.Join(root, "movies.json"),
		catalog.WithLogger(discardLogger()),
		catalog.WithPathCheck(catalog.ConfinedTo(resolver)),
		catalog.WithReloadHook(func(tb *catalog.Table) {
			if env.server != nil {
				env.server.BroadcastCatalog(tb)
			}
		}),
	)
	if _, err := env.store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	lib := library.NewService(env.store, resolver, subtitle.NewResolver(fs, resolver),
		library.WithFS(fs), library.WithLogger(discardLogger()))

	opts = append([]ServerOption{WithLogger(discardLogger()), WithRateLimit(0, 0), WithFS(fs)}, opts...)
	env.server = NewServer(env.store, lib, resolver, opts...)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return env.Error
}

func TestBundledAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "<html>shell</html>" {
		t.Fatalf("index: %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("index content type = %q", ct)
	}

	rec = env.do(t, http.MethodGet, "/about_page.json", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"app":"movieshell"}` {
		t.Fatalf("about asset: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAssetNotFoundCases(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{
		"/movies/nope.mp4",
		"/movies/folder.mp4",
		"/movies/",
		"/notes.txt",
		"/favicon.ico",
		"/.well-known/appspecific/com.chrome.devtools.json",
		"/style.css",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", target, rec.Code)
		}
		if decodeError(t, rec).Code != "not_found" {
			t.Fatalf("%s: unexpected error body %s", target, rec.Body.String())
		}
	}
}

func TestTraversalNeverServes(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{
		"/movies/../../../../etc/passwd",
		"/movies/%2e%2e/%2e%2e/notes.txt",
		"/images/..%2f..%2fnotes.txt",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		// The mux redirects unclean paths to their cleaned form first.
		if rec.Code == http.StatusMovedPermanently {
			rec = env.do(t, http.MethodGet, rec.Header().Get("Location"), nil)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "not served") {
			t.Fatalf("%s: leaked file outside the library", target)
		}
	}
}

func TestAssetRejectsWrites(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/movies/clip.mp4", nil)
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET, HEAD" {
		t.Fatalf("status = %d allow = %q", rec.Code, rec.Header().Get("Allow"))
	}
}

func TestMediaListAndDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/media", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []library.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 3 || items[0].Name != "Example Movie 1" || items[1].Title != "No Title" || items[2].Type != "series" {
		t.Fatalf("items = %+v", items)
	}

	rec = env.do(t, http.MethodGet, "/api/media/Example%20Movie%201", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("details status = %d", rec.Code)
	}
	var item library.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !item.HasVideo || !item.HasSubtitles || item.SubtitlePath != "http://localhost:8000/movies/clip.srt" {
		t.Fatalf("details = %+v", item)
	}

	rec = env.do(t, http.MethodGet, "/api/media/Nobody", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != "not_found" {
		t.Fatalf("unknown: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"journey", "JOURNEY"} {
		rec := env.do(t, http.MethodGet, "/api/search?q="+q, nil)
		var items []library.Item
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(items) != 1 || items[0].Title != "A Fantastic Journey" {
			t.Fatalf("search %q = %+v", q, items)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/search?q=", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty query = %s", rec.Body.String())
	}
}

func TestAboutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/about", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"app":"movieshell"}` {
		t.Fatalf("about: %d %s", rec.Code, rec.Body.String())
	}

	if err := os.Remove(filepath.Join(env.root, "about_page.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/about", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing about status = %d", rec.Code)
	}
	var payload library.AboutError
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Error != "About information file not found." {
		t.Fatalf("payload = %s", rec.Body.String())
	}
}

func TestReloadAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reload", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reload status = %d", rec.Code)
	}

	writeTestFile(t, filepath.Join(env.root, "movies.json"), []byte(`{"movies": {}}`))
	rec = env.do(t, http.MethodPost, "/api/reload", nil)
	var reload reloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reload.Generation != 2 || reload.Entries != 0 || reload.Error == "" {
		t.Fatalf("reload = %+v", reload)
	}

	rec = env.do(t, http.MethodGet, "/api/media", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("media after invalid reload = %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/health", nil)
	var health healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Entries != 0 || health.Generation != 2 || health.CatalogError == "" {
		t.Fatalf("health = %+v", health)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nothing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
