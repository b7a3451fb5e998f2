package trajectory

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trajectory.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_WithHeaderAndHeading(t *testing.T) {
	path := writeLog(t, "timestamp,x,y,heading\n0,1.5,2.5,90\n1000,2.0,3.0,95.5\n")

	samples, err := Load(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, int64(0), samples[0].TimestampMs)
	assert.Equal(t, 1.5, samples[0].X)
	assert.Equal(t, 2.5, samples[0].Y)
	assert.Equal(t, 90.0, samples[0].HeadingDeg)
	assert.Equal(t, 95.5, samples[1].HeadingDeg)
}

func TestLoad_WithoutHeading(t *testing.T) {
	path := writeLog(t, "0,1,2\n500,3,4\n")

	samples, err := Load(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 0.0, samples[0].HeadingDeg)
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	path := writeLog(t, "0,1,2\nnot,numeric,row\n1000,3,4\n2000,bad,5\n")

	samples, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestLoad_SortsByTimestamp(t *testing.T) {
	path := writeLog(t, "2000,5,6\n0,1,2\n1000,3,4\n")

	samples, err := Load(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(0), samples[0].TimestampMs)
	assert.Equal(t, int64(1000), samples[1].TimestampMs)
	assert.Equal(t, int64(2000), samples[2].TimestampMs)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeLog(t, "")

	_, err := Load(path, discardLogger())
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/trajectory.csv", discardLogger())
	assert.Error(t, err)
}
