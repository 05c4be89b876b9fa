package domain

import "fmt"

// Entry is one movie or series from the catalog, keyed by Name.
type Entry struct {
	Name        string
	Title       string
	Kind        Kind
	Poster      string
	VideoPath   string
	TrailerPath string
	Year        int // 0 when unknown
	Description string
	Seasons     []Season // only for KindSeries
}

// Season holds the episodes of one season in catalog order.
type Season struct {
	ID       string
	Episodes []Episode
}

type Episode struct {
	Name      string
	Title     string
	VideoPath string
	Duration  string
}

// DisplayTitle returns the title, falling back to the catalog key.
func (e Entry) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// Validate checks the tagged-union invariants of an entry.
func (e Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	switch e.Kind {
	case KindMovie:
		if len(e.Seasons) > 0 {
			return fmt.Errorf("%w: movie %q must not carry seasons", ErrInvalidEntry, e.Name)
		}
	case KindSeries:
		if e.VideoPath != "" {
			return fmt.Errorf("%w: series %q must not carry a video path", ErrInvalidEntry, e.Name)
		}
	case "":
		return fmt.Errorf("%w: kind is required", ErrInvalidEntry)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// EpisodeCount returns the number of episodes across all seasons.
func (e Entry) EpisodeCount() int {
	total := 0
	for _, season := range e.Seasons {
		total += len(season.Episodes)
	}
	return total
}
