package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"movieshell/internal/app"
)

func newLogger(levelRaw, formatRaw string, out io.Writer) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, options))
	}
	return slog.New(slog.NewTextHandler(out, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logOutput returns stdout, teed into a size-rotated file when LOG_FILE is
// set. The returned close func flushes the rotated file.
func logOutput(cfg app.Config) (io.Writer, func() error) {
	path := strings.TrimSpace(cfg.LogFile)
	if path == "" {
		return os.Stdout, func() error { return nil }
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.LogFileMaxSize,
		MaxBackups: cfg.LogFileBackups,
	}
	return io.MultiWriter(os.Stdout, rotated), rotated.Close
}
