package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_WritesToFile(t *testing.T) {
	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info", "")
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", "")

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", "")

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_BadGelfAddrIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", "not-an-address")

	m.Logger().Info("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestLogger_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.NotNil(t, m.Logger(), "unconfigured manager falls back to default logger")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestContextHandler_InjectsRunContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	mission := "sol12"
	h := NewContextHandler(inner, func() []slog.Attr {
		return []slog.Attr{slog.String("mission", mission)}
	})

	logger := slog.New(h)
	logger.Info("segmenting")

	assert.Contains(t, buf.String(), "mission=sol12")
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
		nil,
	)

	logger := slog.New(h)
	logger.Info("fan out")

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), "fan out")
}
