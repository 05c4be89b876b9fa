package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var (
	errInvalidRange        = errors.New("invalid range")
	errRangeNotSatisfiable = errors.New("range not satisfiable")
)

// parseByteRange parses a single "bytes=<start>-<end>" range against a file
// of the given size. A missing start means 0 and a missing end means the
// last byte; an end past EOF is clamped. Multiple ranges are rejected.
func parseByteRange(value string, size int64) (int64, int64, error) {
	value = strings.TrimSpace(value)
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "bytes=") {
		return 0, 0, errInvalidRange
	}

	ranges := strings.TrimSpace(value[len("bytes="):])
	if ranges == "" || strings.Contains(ranges, ",") {
		return 0, 0, errInvalidRange
	}

	startStr, endStr, ok := strings.Cut(ranges, "-")
	if !ok {
		return 0, 0, errInvalidRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	var start int64
	if startStr != "" {
		v, err := parseRangeBound(startStr)
		if err != nil {
			return 0, 0, err
		}
		start = v
	}

	end := int64(-1)
	if endStr != "" {
		v, err := parseRangeBound(endStr)
		if err != nil {
			return 0, 0, err
		}
		if v < start {
			return 0, 0, errInvalidRange
		}
		end = v
	}

	if start >= size {
		return 0, 0, errRangeNotSatisfiable
	}
	if end < 0 || end >= size {
		end = size - 1
	}
	return start, end, nil
}

// parseRangeBound parses one side of a byte range. Only ASCII digits are
// accepted; a value too large for int64 saturates so it lands past EOF.
func parseRangeBound(s string) (int64, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errInvalidRange
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt64, nil
	}
	if err != nil {
		return 0, errInvalidRange
	}
	return v, nil
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".mkv":  "video/x-matroska",
	".vtt":  "text/vtt",
	".srt":  "application/x-subrip",
}

const defaultContentType = "application/octet-stream"

// contentTypeFor maps a file extension to a media type. ok is false when
// the extension is unknown and the caller may sniff the content instead.
func contentTypeFor(filePath string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return defaultContentType, false
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct, true
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct, true
	}
	return defaultContentType, false
}

// sniffContentType detects the type from the first bytes of r. It never
// returns an empty string.
func sniffContentType(r io.Reader) string {
	detected, err := mimetype.DetectReader(r)
	if err != nil || detected == nil {
		return defaultContentType
	}
	return detected.String()
}

// isStreamingType reports whether range requests are honoured for ct.
func isStreamingType(ct string) bool {
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

func isImageType(ct string) bool {
	return strings.HasPrefix(ct, "image/")
}
