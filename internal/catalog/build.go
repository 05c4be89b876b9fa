package catalog

import (
	"errors"
	"fmt"
	"strings"

	"movieshell/internal/domain"
	"movieshell/internal/paths"
)

// Issue is a problem found while building the entry table that did not
// stop the rest of the catalog from loading.
type Issue struct {
	Name    string
	Message string
}

func (i Issue) String() string {
	if i.Name == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Name, i.Message)
}

// PathCheck reports whether a catalog-relative path may be used. Paths it
// rejects with paths.ErrEscapesRoot are cleared from the entry.
type PathCheck func(rel string) error

// Build turns a decoded document into entries in document order, movies
// first. Entries that break the movie/series invariants are dropped and
// reported; the rest load.
func Build(doc Document, check PathCheck) ([]domain.Entry, []Issue) {
	b := builder{check: check, seen: make(map[string]struct{})}
	b.section(&doc.Movies, domain.KindMovie)
	b.section(&doc.Series, domain.KindSeries)
	return b.entries, b.issues
}

type builder struct {
	check   PathCheck
	seen    map[string]struct{}
	entries []domain.Entry
	issues  []Issue
}

func (b *builder) report(name, format string, args ...any) {
	b.issues = append(b.issues, Issue{Name: name, Message: fmt.Sprintf(format, args...)})
}

func (b *builder) section(m *OrderedMap[RawEntry], kind domain.Kind) {
	for _, name := range m.Duplicates() {
		b.report(name, "duplicate %s entry ignored", kind)
	}
	for _, failure := range m.Failures() {
		b.report(failure.Key, "dropped: %v", failure.Err)
	}
	for _, name := range m.Keys() {
		raw, _ := m.Get(name)
		if _, dup := b.seen[name]; dup {
			b.report(name, "name already used, %s entry ignored", kind)
			continue
		}
		entry := b.entry(name, raw, kind)
		if err := entry.Validate(); err != nil {
			b.report(name, "dropped: %v", err)
			continue
		}
		b.seen[name] = struct{}{}
		b.entries = append(b.entries, entry)
	}
}

func (b *builder) entry(name string, raw RawEntry, kind domain.Kind) domain.Entry {
	if raw.Type != "" && !strings.EqualFold(raw.Type, string(kind)) {
		b.report(name, "type %q ignored, listed under %ss", raw.Type, kind)
	}
	entry := domain.Entry{
		Name:        name,
		Title:       strings.TrimSpace(raw.Title),
		Kind:        kind,
		Poster:      b.path(name, "poster", raw.Poster),
		VideoPath:   b.path(name, "video_path", deref(raw.VideoPath)),
		TrailerPath: b.path(name, "trailer_path", deref(raw.TrailerPath)),
		Description: deref(raw.Description),
	}
	if raw.Year != nil {
		entry.Year = *raw.Year
	}
	for _, failure := range raw.Seasons.Failures() {
		b.report(name, "season %s dropped: %v", failure.Key, failure.Err)
	}
	for _, seasonID := range raw.Seasons.Keys() {
		rawSeason, _ := raw.Seasons.Get(seasonID)
		for _, dup := range rawSeason.Episodes.Duplicates() {
			b.report(name, "season %s: duplicate episode %q ignored", seasonID, dup)
		}
		for _, failure := range rawSeason.Episodes.Failures() {
			b.report(name, "season %s: episode %q dropped: %v", seasonID, failure.Key, failure.Err)
		}
		season := domain.Season{ID: seasonID}
		for _, episodeName := range rawSeason.Episodes.Keys() {
			rawEpisode, _ := rawSeason.Episodes.Get(episodeName)
			field := fmt.Sprintf("season %s episode %q video_path", seasonID, episodeName)
			season.Episodes = append(season.Episodes, domain.Episode{
				Name:      episodeName,
				Title:     strings.TrimSpace(rawEpisode.Title),
				VideoPath: b.path(name, field, rawEpisode.VideoPath),
				Duration:  strings.TrimSpace(rawEpisode.Duration),
			})
		}
		entry.Seasons = append(entry.Seasons, season)
	}
	return entry
}

func (b *builder) path(name, field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if paths.IsExternal(value) {
		return value
	}
	value = strings.TrimLeft(strings.ReplaceAll(value, "\\", "/"), "/")
	if b.check == nil {
		return value
	}
	if err := b.check(value); err != nil && errors.Is(err, paths.ErrEscapesRoot) {
		b.report(name, "%s %q cleared: %v", field, value, err)
		return ""
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ConfinedTo builds a PathCheck that keeps catalog paths inside the
// resolver's user-content root.
func ConfinedTo(r *paths.Resolver) PathCheck {
	return func(rel string) error {
		_, err := r.CatalogAsset(rel)
		return err
	}
}
