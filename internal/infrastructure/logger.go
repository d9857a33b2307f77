package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gridcli/internal/config"
)

// logFile is the file sink opened by the last logger built with file output
var logFile struct {
	sync.Mutex
	f *os.File
}

// InitializeLogger builds the process logger on stdout and makes it the slog
// default.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logger, err := NewLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// NewLogger builds a JSON logger. logging.output selects console, file or
// both; debug level also records the source position.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	var out io.Writer = console
	if output := strings.ToLower(cfg.Output); output == "file" || output == "both" {
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		out = f
		if output == "both" {
			out = io.MultiWriter(console, f)
		}
	}

	level := parseLogLevel(cfg.Level)
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	})
	return slog.New(traceHandler{handler}), nil
}

// CloseLogFile closes the file sink, if any
func CloseLogFile() error {
	logFile.Lock()
	defer logFile.Unlock()
	if logFile.f == nil {
		return nil
	}
	err := logFile.f.Close()
	logFile.f = nil
	return err
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("logging.file_path is required for file output")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	logFile.Lock()
	if logFile.f != nil {
		logFile.f.Close()
	}
	logFile.f = f
	logFile.Unlock()
	return f, nil
}

// traceHandler stamps records with the trace ID of their context
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
