package catalog

import (
	"time"

	"movieshell/internal/domain"
)

// Table is an immutable catalog snapshot. It is never modified after
// construction; reloads build a new Table.
type Table struct {
	entries    []domain.Entry
	index      map[string]int
	generation uint64
	loadedAt   time.Time
	err        error
	issues     []Issue
	source     string
}

// NewTable indexes entries by name, keeping the first of any duplicates.
func NewTable(entries []domain.Entry, generation uint64) *Table {
	t := &Table{
		entries:    make([]domain.Entry, 0, len(entries)),
		index:      make(map[string]int, len(entries)),
		generation: generation,
		loadedAt:   time.Now().UTC(),
	}
	for _, entry := range entries {
		if _, exists := t.index[entry.Name]; exists {
			continue
		}
		t.index[entry.Name] = len(t.entries)
		t.entries = append(t.entries, entry)
	}
	return t
}

func (t *Table) Lookup(name string) (domain.Entry, bool) {
	if t == nil {
		return domain.Entry{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return domain.Entry{}, false
	}
	return t.entries[i], true
}

// All returns the entries in source order. The slice is a copy.
func (t *Table) All() []domain.Entry {
	if t == nil {
		return nil
	}
	out := make([]domain.Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func (t *Table) Generation() uint64 {
	if t == nil {
		return 0
	}
	return t.generation
}

func (t *Table) LoadedAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.loadedAt
}

// Err is the load failure this table degraded from, nil for a clean load.
func (t *Table) Err() error {
	if t == nil {
		return nil
	}
	return t.err
}

func (t *Table) Issues() []Issue {
	if t == nil {
		return nil
	}
	return t.issues
}

// Source is the catalog file the table was read from.
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}
