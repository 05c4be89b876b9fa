package paths

import (
	"net/url"
	"strings"
)

// EncodePath percent-encodes each segment of a slash separated path on its
// own, keeping the separators literal.
func EncodePath(rel string) string {
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
