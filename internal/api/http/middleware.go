package apihttp

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"movieshell/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// statusRecorder remembers what a handler wrote so outer middleware can log
// and count it.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func record(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.written += n
	return n, err
}

// Hijack is required by the websocket upgrade behind this wrapper.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot be hijacked")
	}
	return hijacker.Hijack()
}

func (sr *statusRecorder) Flush() {
	if flusher, ok := sr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// originAllowed returns a matcher for the configured origins. An empty list
// allows every origin.
func originAllowed(allowed []string) func(string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	return func(origin string) bool {
		if len(set) == 0 {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	allow := originAllowed(allowed)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin == "" {
			h.Set("Access-Control-Allow-Origin", "*")
		} else if allow(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Range, "+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Length, "+requestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID returns the id assigned to the request by loggingMiddleware.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// incomingRequestID keeps a client supplied id when it is short enough to
// be a real correlation id.
func incomingRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id == "" || len(id) > 64 {
		return uuid.NewString()
	}
	return id
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		id := incomingRequestID(r)
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		rec := record(w)
		next.ServeHTTP(rec, r)

		attrs := append(requestAttrs(r),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.written),
			slog.Int64("durationMs", time.Since(began).Milliseconds()),
			slog.String("requestId", id),
		)
		logger.LogAttrs(r.Context(), pickRequestLogLevel(r.URL.Path, rec.status), "http request", attrs...)
	})
}

// requestAttrs describes the request side of a log line.
func requestAttrs(r *http.Request) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("clientIP", clientIP(r)),
	}
	optional := []struct {
		key   string
		value string
		limit int
	}{
		{"query", r.URL.RawQuery, 180},
		{"range", r.Header.Get("Range"), 64},
		{"userAgent", r.UserAgent(), 120},
	}
	for _, o := range optional {
		if v := strings.TrimSpace(o.value); v != "" {
			attrs = append(attrs, slog.String(o.key, clip(v, o.limit)))
		}
	}
	return attrs
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}
			attrs := append(requestAttrs(r),
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			logger.LogAttrs(r.Context(), slog.LevelError, "handler panicked", attrs...)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware counts requests under the label routes assigns to the
// path, keeping label cardinality bounded.
func metricsMiddleware(routes func(string) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		began := time.Now()
		rec := record(w)
		next.ServeHTTP(rec, r)

		route := routes(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
	})
}

// normalizeAPIRoute collapses API paths to bounded metric labels. Asset
// paths are handled by the resolver's route names.
func normalizeAPIRoute(path string) (string, bool) {
	switch {
	case path == "/metrics" || path == "/health" || path == "/ws":
		return path, true
	case path == "/api/media":
		return "/api/media", true
	case strings.HasPrefix(path, "/api/media/"):
		return "/api/media/:name", true
	case path == "/api/search" || path == "/api/about" || path == "/api/reload":
		return path, true
	case strings.HasPrefix(path, "/api/"):
		return "/api/other", true
	default:
		return "", false
	}
}

func pickRequestLogLevel(path string, status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if isNoisyPath(path) {
		return slog.LevelDebug
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// isNoisyPath marks asset and probe traffic, which a player generates in
// bulk while seeking.
func isNoisyPath(path string) bool {
	switch path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}
	if strings.HasPrefix(path, "/.well-known/") {
		return true
	}
	if _, api := normalizeAPIRoute(path); api {
		return false
	}
	return path != "/"
}

// clientIP prefers the first proxy hop, then X-Real-IP, then the peer.
func clientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil && host != "" {
		return host
	}
	return peer
}

// clip shortens value to at most limit bytes, marking the cut with "...".
func clip(value string, limit int) string {
	switch {
	case limit <= 0 || len(value) <= limit:
		return value
	case limit <= 3:
		return value[:limit]
	default:
		return value[:limit-3] + "..."
	}
}

// exemptFromLimit lists the probe endpoints that monitoring polls.
func exemptFromLimit(path string) bool {
	return path == "/health" || path == "/metrics"
}

// rateLimitMiddleware applies a global token bucket. Requests over the
// limit get 429. A non-positive rps disables limiting.
func rateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exemptFromLimit(r.URL.Path) && !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
