package app

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr        string
	PublicBaseURL   string
	LibraryDir      string
	BundledDir      string
	CatalogFile     string
	LogLevel        string
	LogFormat       string
	LogFile         string
	LogFileMaxSize  int // megabytes
	LogFileBackups  int
	AllowedOrigins  []string
	RateLimitRPS    float64 // 0 = disabled
	RateLimitBurst  int
	MaxTransfers    int64 // 0 = unbounded
	SearchCacheOff  bool
	SearchCacheTTLS int64
	RedisURL        string
	InstanceLock    bool
	OTELEndpoint    string
	OTELSampleRate  float64
}

func LoadConfig() Config {
	cfg := Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		PublicBaseURL:   strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")),
		LibraryDir:      getEnv("LIBRARY_DIR", "."),
		BundledDir:      getEnv("BUNDLED_DIR", "."),
		CatalogFile:     getEnv("CATALOG_FILE", "movies.json"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:         getEnv("LOG_FILE", ""),
		LogFileMaxSize:  int(getEnvInt64("LOG_FILE_MAX_SIZE_MB", 20)),
		LogFileBackups:  int(getEnvInt64("LOG_FILE_MAX_BACKUPS", 3)),
		AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:  int(getEnvInt64("RATE_LIMIT_BURST", 200)),
		MaxTransfers:    getEnvInt64("MAX_CONCURRENT_TRANSFERS", 0),
		SearchCacheOff:  getEnvBool("SEARCH_CACHE_DISABLED", false),
		SearchCacheTTLS: getEnvInt64("SEARCH_CACHE_TTL_SECONDS", 300),
		RedisURL:        getEnv("REDIS_URL", ""),
		InstanceLock:    getEnvBool("INSTANCE_LOCK", true),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRate:  getEnvFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills the derived defaults. It is called again after command
// line flags override fields.
func (c *Config) Normalize() {
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = DefaultBaseURL(c.HTTPAddr)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// CatalogPath resolves CatalogFile against LibraryDir unless it is absolute.
func (c Config) CatalogPath() string {
	if filepath.IsAbs(c.CatalogFile) {
		return c.CatalogFile
	}
	return filepath.Join(c.LibraryDir, c.CatalogFile)
}

// LockPath is the single-instance lock file of the library.
func (c Config) LockPath() string {
	return filepath.Join(c.LibraryDir, ".movieshell.lock")
}

// DefaultBaseURL derives the public URL from a listen address.
func DefaultBaseURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		port = "8000"
	}
	return "http://localhost:" + port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
