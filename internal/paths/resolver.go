package paths

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"movieshell/internal/domain"
)

var (
	ErrEscapesRoot = errors.New("path escapes root")
	ErrUnhandled   = errors.New("unhandled path")
	ErrExternal    = errors.New("external url")
	ErrEmptyPath   = errors.New("empty path")
)

type Config struct {
	BundledRoot string
	UserRoot    string
	BaseURL     string
	Routes      []Route // DefaultRoutes when nil
}

// Resolver translates between catalog-relative paths, public URLs and
// absolute filesystem paths under the bundled and user-content roots.
type Resolver struct {
	bundledRoot string
	userRoot    string
	baseURL     string
	routes      []Route
}

func NewResolver(cfg Config) (*Resolver, error) {
	bundled, err := absRoot(cfg.BundledRoot)
	if err != nil {
		return nil, fmt.Errorf("bundled root: %w", err)
	}
	user, err := absRoot(cfg.UserRoot)
	if err != nil {
		return nil, fmt.Errorf("user root: %w", err)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}
	routes := cfg.Routes
	if routes == nil {
		routes = DefaultRoutes
	}
	return &Resolver{
		bundledRoot: bundled,
		userRoot:    user,
		baseURL:     base,
		routes:      routes,
	}, nil
}

func absRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", errors.New("root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func (r *Resolver) BundledRoot() string { return r.bundledRoot }
func (r *Resolver) UserRoot() string    { return r.userRoot }

// Classify finds the route for a decoded URL path and returns the
// root-relative file it refers to. The path is normalized before matching,
// so dot segments can never climb above the root.
func (r *Resolver) Classify(urlPath string) (Route, string, error) {
	if strings.ContainsAny(urlPath, "\x00\\") {
		return Route{}, "", fmt.Errorf("%w: %q", ErrEscapesRoot, urlPath)
	}
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	cleaned := path.Clean(urlPath)
	for _, route := range r.routes {
		if !route.matches(cleaned) {
			continue
		}
		if route.Root == domain.RootNone {
			return route, "", fmt.Errorf("%w: %s", ErrUnhandled, cleaned)
		}
		rel := route.Target
		if rel == "" {
			rel = strings.TrimPrefix(cleaned, "/")
		}
		return route, rel, nil
	}
	return Route{}, "", fmt.Errorf("%w: %s", ErrUnhandled, cleaned)
}

// Resolve classifies a request path and locates it on disk.
func (r *Resolver) Resolve(urlPath string) (domain.ResolvedAsset, error) {
	route, rel, err := r.Classify(urlPath)
	if err != nil {
		return domain.ResolvedAsset{}, err
	}
	filePath, err := r.Join(route.Root, rel)
	if err != nil {
		return domain.ResolvedAsset{}, err
	}
	return domain.ResolvedAsset{
		Root:     route.Root,
		Relative: rel,
		FilePath: filePath,
		URL:      r.URL(rel),
	}, nil
}

// CatalogAsset resolves a path as written in the catalog. External URLs are
// returned with ErrExternal and only the URL populated.
func (r *Resolver) CatalogAsset(rel string) (domain.ResolvedAsset, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return domain.ResolvedAsset{}, ErrEmptyPath
	}
	if IsExternal(rel) {
		return domain.ResolvedAsset{URL: rel}, ErrExternal
	}
	rel = normalizeRelative(rel)
	filePath, err := r.Join(domain.RootUser, rel)
	if err != nil {
		return domain.ResolvedAsset{}, err
	}
	return domain.ResolvedAsset{
		Root:     domain.RootUser,
		Relative: rel,
		FilePath: filePath,
		URL:      r.URL(rel),
	}, nil
}

// Join places a root-relative path under the given root and rejects any
// result outside it.
func (r *Resolver) Join(root domain.Root, rel string) (string, error) {
	var base string
	switch root {
	case domain.RootBundled:
		base = r.bundledRoot
	case domain.RootUser:
		base = r.userRoot
	default:
		return "", fmt.Errorf("%w: no root for %q", ErrUnhandled, rel)
	}
	rel = normalizeRelative(rel)
	if rel == "" {
		return "", ErrEmptyPath
	}
	if filepath.IsAbs(filepath.FromSlash(rel)) || filepath.VolumeName(filepath.FromSlash(rel)) != "" {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	joined := filepath.Clean(filepath.Join(base, filepath.FromSlash(rel)))
	if joined == base || !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	return joined, nil
}

// RelativeToUser converts an absolute path under the user-content root into
// a slash separated catalog-relative path.
func (r *Resolver) RelativeToUser(filePath string) (string, error) {
	rel, err := filepath.Rel(r.userRoot, filepath.Clean(filePath))
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, filePath)
	}
	return rel, nil
}

// URL returns the public URL for a root-relative path. External URLs pass
// through unchanged; an empty path yields an empty URL.
func (r *Resolver) URL(rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return ""
	}
	if IsExternal(rel) {
		return rel
	}
	return r.baseURL + "/" + EncodePath(normalizeRelative(rel))
}

// IsExternal reports whether p is an absolute http(s) URL.
func IsExternal(p string) bool {
	lower := strings.ToLower(strings.TrimSpace(p))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func normalizeRelative(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	return strings.TrimLeft(rel, "/")
}
