package paths

import (
	"strings"

	"movieshell/internal/domain"
)

// Route maps a set of URL paths to a root. A route matches when the cleaned
// URL path equals Exact, starts with one of Prefixes, or ends with one of
// Suffixes (case-insensitive). Routes are evaluated in order; the first
// match wins.
type Route struct {
	Name     string
	Exact    string
	Prefixes []string
	Suffixes []string
	Root     domain.Root
	// Target replaces the URL path as the root-relative file when set.
	Target string
}

func (r Route) matches(urlPath string) bool {
	if r.Exact != "" && urlPath == r.Exact {
		return true
	}
	for _, prefix := range r.Prefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	if len(r.Suffixes) > 0 {
		lower := strings.ToLower(urlPath)
		for _, suffix := range r.Suffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
		}
	}
	return false
}

// LibraryExtensions are the media, subtitle and image extensions served from
// the user-content root regardless of directory.
var LibraryExtensions = []string{
	".mp4", ".m4v", ".webm", ".ogg", ".mkv",
	".srt", ".vtt",
	".jpg", ".jpeg", ".png", ".gif",
}

// LibraryDirs are the top-level folders of a media library.
var LibraryDirs = []string{"/images/", "/movies/", "/series/", "/trailers/"}

const AboutDocument = "about_page.json"

// DefaultRoutes is the classification table of the HTTP surface. Bundled
// routes come first so library extensions never shadow application assets.
var DefaultRoutes = []Route{
	{Name: "index", Exact: "/", Root: domain.RootBundled, Target: "html/index.html"},
	{Name: "stylesheet", Exact: "/style.css", Root: domain.RootBundled, Target: "html/style.css"},
	{Name: "script", Exact: "/script.js", Root: domain.RootBundled, Target: "html/script.js"},
	{Name: "about", Exact: "/" + AboutDocument, Root: domain.RootBundled, Target: AboutDocument},
	{Name: "bundled-html", Prefixes: []string{"/html/"}, Root: domain.RootBundled},
	{Name: "library", Prefixes: LibraryDirs, Root: domain.RootUser},
	{Name: "library-media", Suffixes: LibraryExtensions, Root: domain.RootUser},
	{Name: "browser-probe", Exact: "/favicon.ico", Prefixes: []string{"/.well-known/"}, Root: domain.RootNone},
}
