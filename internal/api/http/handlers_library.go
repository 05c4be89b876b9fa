package apihttp

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"movieshell/internal/library"
)

type healthResponse struct {
	Status     string `json:"status"`
	Entries    int    `json:"entries"`
	Generation uint64 `json:"generation"`
	// CatalogError is set while the server runs on an empty table after a
	// failed load.
	CatalogError string `json:"catalogError,omitempty"`
}

type reloadResponse struct {
	Generation uint64   `json:"generation"`
	Entries    int      `json:"entries"`
	Issues     []string `json:"issues,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	return false
}

func (s *Server) handleMediaList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, s.library.ListAll(r.Context()))
}

func (s *Server) handleMediaByName(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/api/media/")
	name, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid media name")
		return
	}
	item, ok := s.library.Details(r.Context(), name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "media not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, s.library.Search(r.Context(), r.URL.Query().Get("q")))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	doc, err := s.library.About(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrAboutNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, library.AboutErrorFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	table, err := s.store.Reload(r.Context())
	resp := reloadResponse{Generation: table.Generation(), Entries: table.Len()}
	for _, issue := range table.Issues() {
		resp.Issues = append(resp.Issues, issue.String())
	}
	if err != nil {
		s.logger.Warn("catalog reload failed", slog.String("error", err.Error()))
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "unknown endpoint")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	table := s.store.Snapshot()
	resp := healthResponse{Status: "ok", Entries: table.Len(), Generation: table.Generation()}
	if err := table.Err(); err != nil {
		resp.CatalogError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
