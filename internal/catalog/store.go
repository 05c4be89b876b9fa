package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"movieshell/internal/domain"
	"movieshell/internal/metrics"
)

// Result labels of a load, as reported to metrics.
const (
	ResultOK            = "ok"
	ResultPlaceholder   = "placeholder"
	ResultInvalidSchema = "invalid_schema"
	ResultDecodeError   = "decode_error"
	ResultUnreadable    = "unreadable"
)

// ReadFile loads and builds a catalog file without touching any Store. A
// missing file is reported as fs.ErrNotExist.
func ReadFile(fsys afero.Fs, path string, check PathCheck) ([]Issue, *Table, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	doc, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, nil, err
	}
	entries, issues := Build(doc, check)
	table := NewTable(entries, 0)
	table.issues = issues
	table.source = path
	return issues, table, nil
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPathCheck(check PathCheck) Option {
	return func(s *Store) { s.check = check }
}

// WithReloadHook registers a callback run after every swap, including the
// first load.
func WithReloadHook(hook func(*Table)) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// Store owns the current catalog snapshot. Readers take the snapshot with
// Snapshot and never lock; Reload builds a new table and swaps the pointer.
type Store struct {
	fs     afero.Fs
	path   string
	check  PathCheck
	logger *slog.Logger
	hooks  []func(*Table)

	reloadMu   sync.Mutex
	generation uint64
	current    atomic.Pointer[Table]
}

func NewStore(fsys afero.Fs, path string, opts ...Option) *Store {
	s := &Store{
		fs:     fsys,
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := NewTable(nil, 0)
	empty.source = path
	s.current.Store(empty)
	return s
}

func (s *Store) Path() string { return s.path }

// Snapshot returns the current table. It is never nil.
func (s *Store) Snapshot() *Table { return s.current.Load() }

func (s *Store) Lookup(name string) (domain.Entry, bool) { return s.Snapshot().Lookup(name) }

func (s *Store) All() []domain.Entry { return s.Snapshot().All() }

// Load performs the initial load. It is the same operation as Reload.
func (s *Store) Load(ctx context.Context) (*Table, error) { return s.Reload(ctx) }

// Reload reads the catalog file again and swaps in the result. A missing
// file is replaced by the placeholder catalog. On any failure the store
// swaps in an empty table and returns the error; the service keeps running.
func (s *Store) Reload(ctx context.Context) (*Table, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.Snapshot(), err
	}

	result := ResultOK
	issues, table, err := ReadFile(s.fs, s.path, s.check)
	if errors.Is(err, fs.ErrNotExist) {
		result = ResultPlaceholder
		issues, table, err = s.placeholder()
	}
	if err != nil {
		result = resultFor(err)
		table = NewTable(nil, 0)
		table.err = err
		table.source = s.path
		s.logger.Error("catalog load failed, serving an empty catalog",
			slog.String("path", s.path),
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
	}
	for _, issue := range issues {
		s.logger.Warn("catalog entry issue",
			slog.String("path", s.path),
			slog.String("entry", issue.Name),
			slog.String("issue", issue.Message),
		)
	}

	s.generation++
	table.generation = s.generation
	s.current.Store(table)

	metrics.CatalogLoadsTotal.WithLabelValues(result).Inc()
	metrics.CatalogEntries.Set(float64(table.Len()))
	if err == nil {
		s.logger.Info("catalog loaded",
			slog.String("path", s.path),
			slog.String("result", result),
			slog.Int("entries", table.Len()),
			slog.Uint64("generation", table.generation),
		)
	}
	for _, hook := range s.hooks {
		hook(table)
	}
	return table, err
}

// placeholder writes the sample catalog and loads it back. A failed write
// degrades to an empty table like any other load failure.
func (s *Store) placeholder() ([]Issue, *Table, error) {
	s.logger.Warn("catalog file not found, writing placeholder", slog.String("path", s.path))
	if err := WritePlaceholder(s.fs, s.path); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, nil, err
	}
	issues, table, err := ReadFile(s.fs, s.path, s.check)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %v", ErrPlaceholder, err)
	}
	return issues, table, err
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSchema):
		return ResultInvalidSchema
	case errors.Is(err, ErrDecode):
		return ResultDecodeError
	default:
		return ResultUnreadable
	}
}
