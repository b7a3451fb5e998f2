package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// SlogManager owns the process-wide slog configuration: console plus an
// optional session log file and an optional GELF (graylog) endpoint.
type SlogManager struct {
	logger *slog.Logger

	gelfWriter *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HandlerOptions returns the shared handler options: configured level and
// RFC3339 UTC timestamps.
func HandlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes logging with console output plus the optional session
// file and GELF endpoint. An unreachable GELF address is logged and skipped,
// never fatal.
func (m *SlogManager) Setup(file io.Writer, level, gelfAddr string) {
	handlerOpts := HandlerOptions(level)

	var handlers []slog.Handler
	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	var gelfErr error
	if gelfAddr != "" {
		w, err := gelf.NewWriter(gelfAddr)
		if err != nil {
			gelfErr = err
		} else {
			m.gelfWriter = w
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		}
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
	if gelfErr != nil {
		m.logger.Warn("GELF endpoint unavailable, continuing without it",
			"addr", gelfAddr, "error", gelfErr)
	}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Close releases the GELF connection if one was opened.
func (m *SlogManager) Close() {
	if m.gelfWriter != nil {
		_ = m.gelfWriter.Close()
	}
}
