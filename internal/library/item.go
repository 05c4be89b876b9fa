package library

import (
	"path"
	"strings"
)

// Item is the presentation record of a catalog entry: paths are public
// URLs and the derived flags are filled in.
type Item struct {
	Name         string       `json:"name_in_json"`
	Title        string       `json:"title"`
	Type         string       `json:"type"`
	Poster       string       `json:"poster"`
	VideoPath    string       `json:"video_path"`
	TrailerPath  string       `json:"trailer_path"`
	SubtitlePath string       `json:"subtitle_path"`
	HasVideo     bool         `json:"has_video"`
	HasTrailer   bool         `json:"has_trailer"`
	HasSubtitles bool         `json:"has_subtitles"`
	Year         int          `json:"year,omitempty"`
	Description  string       `json:"description"`
	Seasons      *SeasonIndex `json:"seasons,omitempty"`
}

type EpisodeItem struct {
	Name         string `json:"-"`
	Title        string `json:"title"`
	VideoPath    string `json:"video_path"`
	Duration     string `json:"duration,omitempty"`
	SubtitlePath string `json:"subtitle_path"`
	HasVideo     bool   `json:"has_video"`
	HasSubtitles bool   `json:"has_subtitles"`
}

type SeasonItem struct {
	ID       string        `json:"-"`
	Episodes []EpisodeItem `json:"-"`
}

var localVideoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".webm": {},
	".ogg":  {},
	".mkv":  {},
}

var embedPatterns = []string{
	"youtube.com/embed/",
	"youtube.com/watch?v=",
	"youtu.be/",
}

// IsPlayable reports whether a catalog video path can be played: a local
// file with a known video extension or a recognised embeddable URL.
func IsPlayable(videoPath string) bool {
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return false
	}
	lower := strings.ToLower(videoPath)
	for _, pattern := range embedPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		lower = stripQuery(lower)
	}
	_, ok := localVideoExtensions[path.Ext(lower)]
	return ok
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
