package apihttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/semaphore"

	"movieshell/internal/catalog"
	"movieshell/internal/library"
	"movieshell/internal/paths"
)

// CatalogStore is the catalog the server reads and reloads.
type CatalogStore interface {
	Snapshot() *catalog.Table
	Reload(ctx context.Context) (*catalog.Table, error)
}

// Library answers the JSON query endpoints.
type Library interface {
	ListAll(ctx context.Context) []library.Item
	Details(ctx context.Context, name string) (library.Item, bool)
	Search(ctx context.Context, query string) []library.Item
	About(ctx context.Context) (json.RawMessage, error)
}

type Server struct {
	store          CatalogStore
	library        Library
	paths          *paths.Resolver
	fs             afero.Fs
	transfers      *semaphore.Weighted
	allowedOrigins []string
	rateLimitRPS   float64
	rateLimitBurst int
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
	upgrader       websocket.Upgrader
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFS sets the filesystem assets are read from. Defaults to the OS.
func WithFS(fs afero.Fs) ServerOption {
	return func(s *Server) {
		s.fs = fs
	}
}

func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

// WithMaxConcurrentTransfers bounds how many file bodies are written at
// once. Zero or less means unbounded.
func WithMaxConcurrentTransfers(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.transfers = semaphore.NewWeighted(n)
		} else {
			s.transfers = nil
		}
	}
}

func NewServer(store CatalogStore, lib Library, resolver *paths.Resolver, opts ...ServerOption) *Server {
	s := &Server{
		store:          store,
		library:        lib,
		paths:          resolver,
		rateLimitRPS:   100,
		rateLimitBurst: 200,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}

	s.upgrader = newUpgrader(originAllowed(s.allowedOrigins))
	s.wsHub = newWSHub(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/media", s.handleMediaList)
	mux.HandleFunc("/api/media/", s.handleMediaByName)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/about", s.handleAbout)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleAsset)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "movieshell",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger,
		rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst,
			metricsMiddleware(s.routeLabel, corsMiddleware(s.allowedOrigins, traced))))
	return s
}

// routeLabel names a request path for metrics: API routes by pattern,
// assets by the resolver route they match.
func (s *Server) routeLabel(path string) string {
	if route, ok := normalizeAPIRoute(path); ok {
		return route
	}
	route, _, _ := s.paths.Classify(path)
	if route.Name == "" {
		return "/other"
	}
	return "asset:" + route.Name
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	if !s.wsHub.attach(conn) {
		_ = conn.Close()
	}
}

// BroadcastCatalog tells websocket clients a new catalog table is live.
func (s *Server) BroadcastCatalog(table *catalog.Table) {
	s.wsHub.Broadcast("catalog", catalogEvent{
		Generation: table.Generation(),
		Entries:    table.Len(),
	})
}

// Close disconnects websocket clients. In-flight HTTP responses are left to
// http.Server.Shutdown.
func (s *Server) Close() {
	s.wsHub.Close()
}
