package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var configEnvVars = []string{
	"HTTP_ADDR", "PUBLIC_BASE_URL", "LIBRARY_DIR", "BUNDLED_DIR", "CATALOG_FILE",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_FILE_MAX_SIZE_MB", "LOG_FILE_MAX_BACKUPS",
	"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "MAX_CONCURRENT_TRANSFERS",
	"SEARCH_CACHE_DISABLED", "SEARCH_CACHE_TTL_SECONDS", "REDIS_URL", "INSTANCE_LOCK",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_TRACE_SAMPLE_RATE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8000"},
		{"PublicBaseURL", cfg.PublicBaseURL, "http://localhost:8000"},
		{"LibraryDir", cfg.LibraryDir, "."},
		{"BundledDir", cfg.BundledDir, "."},
		{"CatalogFile", cfg.CatalogFile, "movies.json"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"LogFile", cfg.LogFile, ""},
		{"LogFileMaxSize", cfg.LogFileMaxSize, 20},
		{"LogFileBackups", cfg.LogFileBackups, 3},
		{"AllowedOrigins", len(cfg.AllowedOrigins), 0},
		{"RateLimitRPS", cfg.RateLimitRPS, 100.0},
		{"RateLimitBurst", cfg.RateLimitBurst, 200},
		{"MaxTransfers", cfg.MaxTransfers, int64(0)},
		{"SearchCacheOff", cfg.SearchCacheOff, false},
		{"SearchCacheTTLS", cfg.SearchCacheTTLS, int64(300)},
		{"RedisURL", cfg.RedisURL, ""},
		{"InstanceLock", cfg.InstanceLock, true},
		{"OTELEndpoint", cfg.OTELEndpoint, ""},
		{"OTELSampleRate", cfg.OTELSampleRate, 0.1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("got %v (%T), want %v (%T)", tc.got, tc.got, tc.want, tc.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"HTTP_ADDR":                "127.0.0.1:9090",
		"LIBRARY_DIR":              "/srv/media",
		"CATALOG_FILE":             "catalog.yaml",
		"LOG_LEVEL":                "DEBUG",
		"CORS_ALLOWED_ORIGINS":     " http://tv.local , ,http://phone.local",
		"RATE_LIMIT_RPS":           "2.5",
		"MAX_CONCURRENT_TRANSFERS": "8",
		"SEARCH_CACHE_DISABLED":    "yes",
		"INSTANCE_LOCK":            "off",
	})
	cfg := LoadConfig()

	if cfg.PublicBaseURL != "http://localhost:9090" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if want := []string{"http://tv.local", "http://phone.local"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 || cfg.MaxTransfers != 8 || !cfg.SearchCacheOff || cfg.InstanceLock {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.CatalogPath(); got != filepath.Join("/srv/media", "catalog.yaml") {
		t.Fatalf("CatalogPath = %q", got)
	}
	if got := cfg.LockPath(); got != filepath.Join("/srv/media", ".movieshell.lock") {
		t.Fatalf("LockPath = %q", got)
	}
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"RATE_LIMIT_BURST":         "-4",
		"SEARCH_CACHE_TTL_SECONDS": "soon",
		"OTEL_TRACE_SAMPLE_RATE":   "-1",
		"INSTANCE_LOCK":            "maybe",
	})
	cfg := LoadConfig()
	if cfg.RateLimitBurst != 200 || cfg.SearchCacheTTLS != 300 || cfg.OTELSampleRate != 0.1 || !cfg.InstanceLock {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestPublicBaseURLOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "https://media.example.net/")
	t.Setenv("CATALOG_FILE", "/etc/movies.json")
	cfg := LoadConfig()
	if cfg.PublicBaseURL != "https://media.example.net" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.CatalogPath() != "/etc/movies.json" {
		t.Fatalf("CatalogPath = %q", cfg.CatalogPath())
	}
}

func TestDefaultBaseURL(t *testing.T) {
	tests := map[string]string{
		":8000":          "http://localhost:8000",
		"0.0.0.0:3000":   "http://localhost:3000",
		"not-an-address": "http://localhost:8000",
	}
	for addr, want := range tests {
		if got := DefaultBaseURL(addr); got != want {
			t.Fatalf("DefaultBaseURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
