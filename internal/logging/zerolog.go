package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the zerolog logger used by the storage and telemetry
// layers, writing console output plus the optional session file.
func NewZerolog(level string, file io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	var w io.Writer = console
	if file != nil {
		w = zerolog.MultiLevelWriter(console, file)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// EngineLogger adapts zerolog.Logger to the analysis engine's Logger
// interface.
type EngineLogger struct {
	logger zerolog.Logger
}

// NewEngineLogger creates an EngineLogger wrapping a zerolog.Logger.
func NewEngineLogger(logger zerolog.Logger) *EngineLogger {
	return &EngineLogger{logger: logger}
}

// Debug logs a debug message with optional key-value pairs.
func (l *EngineLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

// Info logs an info message with optional key-value pairs.
func (l *EngineLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

// Error logs an error message with optional key-value pairs.
func (l *EngineLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
