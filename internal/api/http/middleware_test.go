package apihttp

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSAllowedOrigins(t *testing.T) {
	env := newTestEnv(t, WithAllowedOrigins([]string{"http://tv.local/"}))

	rec := env.do(t, http.MethodGet, "/api/media", http.Header{"Origin": []string{"http://tv.local"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://tv.local" {
		t.Fatalf("allowed origin = %q", got)
	}
	rec = env.do(t, http.MethodGet, "/api/media", http.Header{"Origin": []string{"http://evil.test"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin = %q", got)
	}
	rec = env.do(t, http.MethodOptions, "/movies/clip.mp4", http.Header{"Origin": []string{"http://tv.local"}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
}

func TestOriginAllowed(t *testing.T) {
	if !originAllowed(nil)("http://anything") {
		t.Fatal("empty list should allow all")
	}
	if !originAllowed([]string{"*"})("http://anything") {
		t.Fatal("wildcard should allow all")
	}
	if originAllowed([]string{"http://a"})("http://b") {
		t.Fatal("unexpected match")
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(0.001, 2))
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/api/media", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/media", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health throttled: %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload := decodeError(t, rec); payload.Code != "internal_error" {
		t.Fatalf("code = %q", payload.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	h := loggingMiddleware(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(requestIDHeader) != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "client-42" || rec.Header().Get(requestIDHeader) != "client-42" {
		t.Fatalf("propagated id %q", seen)
	}
}

func TestNormalizeAPIRoute(t *testing.T) {
	tests := []struct {
		path  string
		route string
		ok    bool
	}{
		{"/api/media", "/api/media", true},
		{"/api/media/Example%20Movie", "/api/media/:name", true},
		{"/api/search", "/api/search", true},
		{"/api/unknown", "/api/other", true},
		{"/health", "/health", true},
		{"/movies/clip.mp4", "", false},
	}
	for _, tc := range tests {
		route, ok := normalizeAPIRoute(tc.path)
		if route != tc.route || ok != tc.ok {
			t.Fatalf("normalizeAPIRoute(%q) = %q, %v", tc.path, route, ok)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	env := newTestEnv(t)
	tests := map[string]string{
		"/api/media":       "/api/media",
		"/movies/clip.mp4": "asset:library",
		"/":                "asset:index",
		"/notes.txt":       "/other",
	}
	for path, want := range tests {
		if got := env.server.routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestPickRequestLogLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/api/media", 200, slog.LevelInfo},
		{"/api/media/x", 404, slog.LevelWarn},
		{"/movies/clip.mp4", 206, slog.LevelDebug},
		{"/movies/clip.mp4", 404, slog.LevelDebug},
		{"/health", 200, slog.LevelDebug},
		{"/", 200, slog.LevelInfo},
		{"/api/reload", 500, slog.LevelError},
	}
	for _, tc := range tests {
		if got := pickRequestLogLevel(tc.path, tc.status); got != tc.want {
			t.Fatalf("pickRequestLogLevel(%q, %d) = %v, want %v", tc.path, tc.status, got, tc.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		remote string
		want   string
	}{
		{"forwarded", http.Header{"X-Forwarded-For": {" 10.0.0.1 , 10.0.0.2"}}, "192.0.2.1:1234", "10.0.0.1"},
		{"real ip", http.Header{"X-Real-Ip": {"10.0.0.9"}}, "192.0.2.1:1234", "10.0.0.9"},
		{"peer", http.Header{}, "192.0.2.1:1234", "192.0.2.1"},
		{"bare peer", http.Header{}, "pipe", "pipe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header = tc.header
			req.RemoteAddr = tc.remote
			if got := clientIP(req); got != tc.want {
				t.Fatalf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClip(t *testing.T) {
	if got := clip("abcdef", 5); got != "ab..." {
		t.Fatalf("clip = %q", got)
	}
	if got := clip("abcdef", 2); got != "ab" {
		t.Fatalf("clip short = %q", got)
	}
	if got := clip("abc", 0); got != "abc" {
		t.Fatalf("clip unlimited = %q", got)
	}
}
