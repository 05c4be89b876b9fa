package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const sidecarNote = " Subtitle files (.srt) go in the same folder as their video and share its name."

// Placeholder returns the sample catalog written on first start: two movies
// and two series with one season each.
func Placeholder() Document {
	var doc Document
	doc.Movies.Set("Example Movie 1", RawEntry{
		Title:       "A Fantastic Journey",
		Type:        "movie",
		Poster:      "images/default.png",
		VideoPath:   ptr("movies/dummy_movie_1.mp4"),
		Year:        ptr(2023),
		Description: ptr("Placeholder for your first movie. Replace it with your own details and keep the 'images', 'movies', 'series' and 'trailers' folders next to the catalog file." + sidecarNote),
	})
	doc.Movies.Set("Example Movie 2", RawEntry{
		Title:       "Mystery of the Lost City",
		Type:        "movie",
		Poster:      "images/default.png",
		VideoPath:   ptr("movies/dummy_movie_2.mp4"),
		Year:        ptr(2024),
		Description: ptr("Another placeholder movie. Edit the catalog and put your media files in the matching subfolders." + sidecarNote),
	})

	var saga OrderedMap[RawSeason]
	var sagaEpisodes OrderedMap[RawEpisode]
	sagaEpisodes.Set("Episode 1", RawEpisode{Title: "The Beginning", VideoPath: "series/example_series_1/season 1/episode_1.mp4", Duration: "45m"})
	sagaEpisodes.Set("Episode 2", RawEpisode{Title: "The Journey Continues", VideoPath: "series/example_series_1/season 1/episode_2.mp4", Duration: "42m"})
	saga.Set("1", RawSeason{Episodes: sagaEpisodes})
	doc.Series.Set("Example Series 1", RawEntry{
		Title:       "The Grand Saga",
		Type:        "series",
		Poster:      "images/default.png",
		Year:        ptr(2022),
		Description: ptr("A placeholder series. Add seasons and episodes with video paths relative to the library folder." + sidecarNote),
		Seasons:     &saga,
	})

	var adventures OrderedMap[RawSeason]
	var adventureEpisodes OrderedMap[RawEpisode]
	adventureEpisodes.Set("Part 1", RawEpisode{Title: "First Steps", VideoPath: "series/example_series_2/season 1/part_1.mp4", Duration: "30m"})
	adventures.Set("1", RawSeason{Episodes: adventureEpisodes})
	doc.Series.Set("Example Series 2", RawEntry{
		Title:       "Adventures Unfolding",
		Type:        "series",
		Poster:      "images/default.png",
		Year:        ptr(2021),
		Description: ptr("Another placeholder series. Put a 'default.png' in the 'images' folder to give the samples a poster." + sidecarNote),
		Seasons:     &adventures,
	})
	return doc
}

// WritePlaceholder creates the catalog file with the placeholder content.
// It never overwrites: an existing file yields os.ErrExist.
func WritePlaceholder(fs afero.Fs, path string) error {
	data, err := Encode(Placeholder(), FormatFor(path))
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPlaceholder, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrPlaceholder, err)
		}
	}
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPlaceholder, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", ErrPlaceholder, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPlaceholder, err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
