// Package subtitle discovers sidecar subtitle files next to local videos.
package subtitle

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"movieshell/internal/paths"
)

// Extension of the sidecar file looked up for every video.
const Extension = ".srt"

// Resolver probes the user-content root for "<video base>.srt". Every call
// hits the filesystem so subtitles added after the catalog loaded show up
// without a reload.
type Resolver struct {
	fs    afero.Fs
	paths *paths.Resolver
}

func NewResolver(fs afero.Fs, resolver *paths.Resolver) *Resolver {
	return &Resolver{fs: fs, paths: resolver}
}

// Resolve takes the absolute filesystem path of a video and returns the
// user-root relative path of its sibling subtitle file, if one exists.
func (r *Resolver) Resolve(videoFilePath string) (string, bool) {
	if strings.TrimSpace(videoFilePath) == "" {
		return "", false
	}
	ext := filepath.Ext(videoFilePath)
	base := strings.TrimSuffix(videoFilePath, ext)
	if filepath.Base(base) == "" || strings.HasSuffix(base, string(filepath.Separator)) {
		return "", false
	}
	candidate := base + Extension
	info, err := r.fs.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	rel, err := r.paths.RelativeToUser(candidate)
	if err != nil {
		return "", false
	}
	return rel, true
}

// For is Resolve for a catalog-relative video path. External and
// out-of-root videos never have subtitles.
func (r *Resolver) For(videoPath string) string {
	asset, err := r.paths.CatalogAsset(videoPath)
	if err != nil {
		return ""
	}
	rel, _ := r.Resolve(asset.FilePath)
	return rel
}
