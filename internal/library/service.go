package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"movieshell/internal/catalog"
	"movieshell/internal/domain"
	"movieshell/internal/metrics"
	"movieshell/internal/paths"
)

var (
	ErrAboutNotFound   = errors.New("about document not found")
	ErrAboutUnreadable = errors.New("about document unreadable")
)

// Snapshotter hands out the current catalog table.
type Snapshotter interface {
	Snapshot() *catalog.Table
}

// SubtitleFinder derives the sidecar subtitle of a video on disk.
type SubtitleFinder interface {
	Resolve(videoFilePath string) (string, bool)
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMatchCache enables caching of search matches.
func WithMatchCache(cache MatchCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithFS replaces the filesystem the about document is read from.
func WithFS(fsys afero.Fs) Option {
	return func(s *Service) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// Service answers read-only queries over catalog snapshots. It never
// modifies the store.
type Service struct {
	store     Snapshotter
	paths     *paths.Resolver
	subtitles SubtitleFinder
	fs        afero.Fs
	cache     MatchCache
	cacheTTL  time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(store Snapshotter, resolver *paths.Resolver, subtitles SubtitleFinder, opts ...Option) *Service {
	s := &Service{
		store:     store,
		paths:     resolver,
		subtitles: subtitles,
		fs:        afero.NewOsFs(),
		cacheTTL:  DefaultCacheTTL,
		logger:    slog.Default(),
		tracer:    otel.Tracer("movieshell/library"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAll returns every entry in catalog order.
func (s *Service) ListAll(ctx context.Context) []Item {
	_, span := s.tracer.Start(ctx, "library.ListAll")
	defer span.End()

	table := s.store.Snapshot()
	items := make([]Item, 0, table.Len())
	for _, entry := range table.All() {
		items = append(items, s.present(entry))
	}
	span.SetAttributes(
		attribute.Int("catalog.entries", len(items)),
		attribute.Int64("catalog.generation", int64(table.Generation())),
	)
	return items
}

// Details returns one entry by catalog name.
func (s *Service) Details(ctx context.Context, name string) (Item, bool) {
	_, span := s.tracer.Start(ctx, "library.Details", trace.WithAttributes(attribute.String("catalog.name", name)))
	defer span.End()

	entry, ok := s.store.Snapshot().Lookup(name)
	span.SetAttributes(attribute.Bool("catalog.found", ok))
	if !ok {
		return Item{}, false
	}
	return s.present(entry), true
}

// Search returns entries whose title or description contains the query,
// ignoring case. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, query string) []Item {
	ctx, span := s.tracer.Start(ctx, "library.Search")
	defer span.End()

	// Casers carry state, so each search gets its own.
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	if needle == "" {
		return []Item{}
	}
	table := s.store.Snapshot()
	key := cacheKey(table, needle)

	names, cached := s.cachedMatches(ctx, key)
	if !cached {
		names = match(fold, table, needle)
		s.storeMatches(ctx, key, names)
	}
	span.SetAttributes(
		attribute.Bool("search.cached", cached),
		attribute.Int("search.matches", len(names)),
	)

	items := make([]Item, 0, len(names))
	for _, name := range names {
		entry, ok := table.Lookup(name)
		if !ok {
			continue
		}
		items = append(items, s.present(entry))
	}
	return items
}

func match(fold cases.Caser, table *catalog.Table, needle string) []string {
	names := []string{}
	for _, entry := range table.All() {
		if strings.Contains(fold.String(entry.DisplayTitle()), needle) ||
			strings.Contains(fold.String(entry.Description), needle) {
			names = append(names, entry.Name)
		}
	}
	return names
}

// cacheKey ties a query to one table so reloads never see stale matches.
func cacheKey(table *catalog.Table, needle string) string {
	return fmt.Sprintf("%d-%d:%s", table.Generation(), table.LoadedAt().UnixNano(), needle)
}

func (s *Service) cachedMatches(ctx context.Context, key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	names, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("search cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if ok {
		metrics.SearchCacheHits.Inc()
		return names, true
	}
	metrics.SearchCacheMisses.Inc()
	return nil, false
}

func (s *Service) storeMatches(ctx context.Context, key string, names []string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, names, s.cacheTTL); err != nil {
		s.logger.Warn("search cache write failed", slog.String("error", err.Error()))
	}
}

// About returns the bundled about document verbatim.
func (s *Service) About(ctx context.Context) (json.RawMessage, error) {
	_, span := s.tracer.Start(ctx, "library.About")
	defer span.End()

	filePath, err := s.paths.Join(domain.RootBundled, paths.AboutDocument)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAboutUnreadable, err)
	}
	data, err := afero.ReadFile(s.fs, filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("about document not found", slog.String("path", filePath))
			return nil, fmt.Errorf("%w: %s", ErrAboutNotFound, filePath)
		}
		s.logger.Error("about document read failed", slog.String("path", filePath), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrAboutUnreadable, err)
	}
	if !json.Valid(data) {
		s.logger.Error("about document is not valid JSON", slog.String("path", filePath))
		return nil, fmt.Errorf("%w: invalid JSON", ErrAboutUnreadable)
	}
	return json.RawMessage(data), nil
}

// AboutError is the error-shaped payload returned in place of the about
// document.
type AboutError struct {
	Error string `json:"error"`
}

func AboutErrorFor(err error) AboutError {
	switch {
	case errors.Is(err, ErrAboutNotFound):
		return AboutError{Error: "About information file not found."}
	case errors.Is(err, ErrAboutUnreadable):
		return AboutError{Error: "Error reading about information file."}
	default:
		return AboutError{Error: fmt.Sprintf("An unexpected error occurred: %v", err)}
	}
}
