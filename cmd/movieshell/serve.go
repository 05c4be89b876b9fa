package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	apihttp "movieshell/internal/api/http"
	"movieshell/internal/app"
	"movieshell/internal/catalog"
	"movieshell/internal/library"
	"movieshell/internal/metrics"
	"movieshell/internal/paths"
	"movieshell/internal/subtitle"
	"movieshell/internal/telemetry"
)

const memoryCacheEntries = 512

type serveFlags struct {
	addr    string
	library string
	bundled string
	catalog string
	baseURL string
}

func newServeCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library, its catalog API and the web shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.LoadConfig()
			flags.apply(cmd, &cfg)
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (HTTP_ADDR)")
	cmd.Flags().StringVar(&flags.library, "library", "", "User-content root (LIBRARY_DIR)")
	cmd.Flags().StringVar(&flags.bundled, "bundled", "", "Bundled asset root (BUNDLED_DIR)")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Catalog file (CATALOG_FILE)")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "Public base URL (PUBLIC_BASE_URL)")
	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f serveFlags) apply(cmd *cobra.Command, cfg *app.Config) {
	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.HTTPAddr = f.addr
		if strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")) == "" {
			cfg.PublicBaseURL = ""
		}
	}
	if changed("library") {
		cfg.LibraryDir = f.library
	}
	if changed("bundled") {
		cfg.BundledDir = f.bundled
	}
	if changed("catalog") {
		cfg.CatalogFile = f.catalog
	}
	if changed("base-url") {
		cfg.PublicBaseURL = f.baseURL
	}
	cfg.Normalize()
}

func runServe(ctx context.Context, cfg app.Config) error {
	out, closeLog := logOutput(cfg)
	defer func() { _ = closeLog() }()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, out)
	slog.SetDefault(logger)

	if cfg.InstanceLock {
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another movieshell instance is already serving %s", cfg.LibraryDir)
		}
		defer func() { _ = lock.Unlock() }()
	}

	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: "movieshell",
		Version:     version,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("publicBaseURL", cfg.PublicBaseURL),
		slog.String("libraryDir", cfg.LibraryDir),
		slog.String("bundledDir", cfg.BundledDir),
		slog.String("catalog", cfg.CatalogPath()),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Int64("maxTransfers", cfg.MaxTransfers),
	)

	resolver, err := paths.NewResolver(paths.Config{
		BundledRoot: cfg.BundledDir,
		UserRoot:    cfg.LibraryDir,
		BaseURL:     cfg.PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("configure roots: %w", err)
	}

	fs := afero.NewOsFs()
	var server *apihttp.Server
	store := catalog.NewStore(fs, cfg.CatalogPath(),
		catalog.WithLogger(logger),
		catalog.WithPathCheck(catalog.ConfinedTo(resolver)),
		catalog.WithReloadHook(func(table *catalog.Table) {
			if server != nil {
				server.BroadcastCatalog(table)
			}
		}),
	)
	if _, err := store.Load(ctx); err != nil {
		logger.Warn("catalog unavailable, serving an empty library", slog.String("error", err.Error()))
	}

	libOpts, closeCache := buildLibraryOptions(ctx, cfg, logger)
	defer closeCache()
	lib := library.NewService(store, resolver, subtitle.NewResolver(fs, resolver),
		append(libOpts, library.WithLogger(logger), library.WithFS(fs))...)

	server = apihttp.NewServer(store, lib, resolver,
		apihttp.WithLogger(logger),
		apihttp.WithFS(fs),
		apihttp.WithAllowedOrigins(cfg.AllowedOrigins),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithMaxConcurrentTransfers(cfg.MaxTransfers),
	)
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Large media bodies stream for as long as the client keeps reading.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reloadOnHangup(rootCtx, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("movieshell started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("version", version),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("movieshell stopped")
	return nil
}

// reloadOnHangup re-reads the catalog on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, store *catalog.Store, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			table, err := store.Reload(ctx)
			if err != nil {
				logger.Warn("catalog reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("catalog reloaded",
				slog.Uint64("generation", table.Generation()),
				slog.Int("entries", table.Len()),
			)
		}
	}
}

func buildLibraryOptions(ctx context.Context, cfg app.Config, logger *slog.Logger) ([]library.Option, func()) {
	noop := func() {}
	if cfg.SearchCacheOff {
		return nil, noop
	}
	ttl := time.Duration(cfg.SearchCacheTTLS) * time.Second
	memory := []library.Option{library.WithMatchCache(library.NewMemoryCache(memoryCacheEntries), ttl)}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return memory, noop
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return memory, noop
	}
	cache := library.NewRedisCache(redis.NewClient(redisOpts))
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = cache.Close()
		return memory, noop
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return []library.Option{library.WithMatchCache(cache, ttl)}, func() { _ = cache.Close() }
}
