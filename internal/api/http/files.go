package apihttp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spf13/afero"

	"movieshell/internal/domain"
	"movieshell/internal/metrics"
	"movieshell/internal/paths"
)

const (
	sniffLimit        = 3072
	imageCacheControl = "public, max-age=60"
)

// handleAsset serves bundled and library files, honouring single byte
// ranges on video and audio.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	asset, err := s.paths.Resolve(r.URL.Path)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, paths.ErrUnhandled) {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "asset not resolved",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	s.serveFile(w, r, asset)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, asset domain.ResolvedAsset) {
	f, err := s.fs.Open(asset.FilePath)
	if err != nil {
		s.logger.Debug("asset open failed",
			slog.String("path", asset.Relative),
			slog.String("root", asset.Root.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}
	size := info.Size()

	contentType, known := contentTypeFor(asset.FilePath)
	if !known {
		contentType = sniffFile(f)
	}

	header := w.Header()
	header.Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" && !isStreamingType(contentType) {
		metrics.RangeRequestsTotal.WithLabelValues("ignored").Inc()
		rangeHeader = ""
	}

	if rangeHeader == "" {
		if !s.acquireTransfer(r) {
			return
		}
		defer s.releaseTransfer()
		header.Set("Content-Type", contentType)
		header.Set("Content-Length", strconv.FormatInt(size, 10))
		if isImageType(contentType) {
			header.Set("Cache-Control", imageCacheControl)
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		s.copyBody(w, r, f, size, "full", asset)
		return
	}

	start, end, err := parseByteRange(rangeHeader, size)
	if err != nil {
		if errors.Is(err, errRangeNotSatisfiable) {
			metrics.RangeRequestsTotal.WithLabelValues("unsatisfiable").Inc()
			header.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			writeError(w, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", "requested range not satisfiable")
			return
		}
		metrics.RangeRequestsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid_range", "invalid range header")
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		s.logger.Error("asset seek failed",
			slog.String("path", asset.Relative),
			slog.Int64("offset", start),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "read_failed", "failed to read file")
		return
	}
	if !s.acquireTransfer(r) {
		return
	}
	defer s.releaseTransfer()

	length := end - start + 1
	metrics.RangeRequestsTotal.WithLabelValues("partial").Inc()
	header.Set("Content-Type", contentType)
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	header.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}
	s.copyBody(w, r, f, length, "partial", asset)
}

// copyBody writes exactly n bytes from the current offset. A short write
// means the client went away; it is logged and counted, never surfaced.
func (s *Server) copyBody(w io.Writer, r *http.Request, f afero.File, n int64, kind string, asset domain.ResolvedAsset) {
	written, err := io.CopyN(w, f, n)
	metrics.BytesServedTotal.WithLabelValues(kind).Add(float64(written))
	if err != nil {
		metrics.TransfersInterruptedTotal.Inc()
		s.logger.Debug("transfer interrupted",
			slog.String("path", asset.Relative),
			slog.Int64("written", written),
			slog.Int64("expected", n),
			slog.String("error", err.Error()),
			slog.Bool("clientGone", r.Context().Err() != nil),
			slog.String("requestId", requestID(r.Context())),
		)
	}
}

func (s *Server) acquireTransfer(r *http.Request) bool {
	if s.transfers != nil {
		if err := s.transfers.Acquire(r.Context(), 1); err != nil {
			s.logger.Debug("transfer slot not acquired", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
			return false
		}
	}
	metrics.ActiveTransfers.Inc()
	return true
}

func (s *Server) releaseTransfer() {
	metrics.ActiveTransfers.Dec()
	if s.transfers != nil {
		s.transfers.Release(1)
	}
}

// sniffFile detects the content type of f from its first bytes and rewinds
// it.
func sniffFile(f afero.File) string {
	ct := sniffContentType(io.LimitReader(f, sniffLimit))
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return defaultContentType
	}
	return ct
}
