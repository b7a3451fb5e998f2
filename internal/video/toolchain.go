// Package video wraps the external ffmpeg/ffprobe toolchain. Only process
// invocation lives here; windowing policy belongs to the segmenter.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrToolchainMissing is returned when ffmpeg or ffprobe cannot be found in
// PATH. This is fatal for a run.
var ErrToolchainMissing = errors.New("video toolchain not found in PATH")

// Toolchain abstracts the external video binaries so the segmenter and
// correlator can be tested without them.
type Toolchain interface {
	// Probe returns the total duration of the recording in milliseconds.
	Probe(ctx context.Context, path string) (int64, error)
	// ExtractRange writes exactly [startMs, startMs+durationMs) of the
	// input to an independent output file.
	ExtractRange(ctx context.Context, path string, startMs, durationMs int64, out string) error
	// ExtractFrame writes the frame at tsMs to out. Callers retry once at
	// ts=0 on failure before abandoning the observation.
	ExtractFrame(ctx context.Context, path string, tsMs int64, out string) error
	// BurnTimecode re-encodes the whole recording once, burning a
	// monotonically increasing timecode into every frame.
	BurnTimecode(ctx context.Context, path, out string) error
}

// FFmpeg is the production Toolchain backed by ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	// Reencode selects frame-accurate cuts (libx264 ultrafast, audio
	// stripped) instead of keyframe-aligned stream copies.
	Reencode bool

	logger *slog.Logger
}

// NewFFmpeg locates ffmpeg and ffprobe in PATH. A missing binary aborts the
// whole run.
func NewFFmpeg(logger *slog.Logger) (*FFmpeg, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrToolchainMissing, err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrToolchainMissing, err)
	}

	logger.Debug("Located video toolchain", "ffmpeg", ffmpegPath, "ffprobe", ffprobePath)

	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}, nil
}

// Probe queries the recording duration via ffprobe, falling back to parsing
// ffmpeg's stderr banner when ffprobe cannot report one.
func (f *FFmpeg) Probe(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("recording not accessible: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err == nil {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64); err == nil && secs > 0 {
			return int64(secs * 1000), nil
		}
	}

	// ffprobe gave nothing usable; read the duration off ffmpeg's banner
	cmd = exec.CommandContext(ctx, f.ffmpegPath, "-i", path, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	ms, err := parseBannerDuration(stderr.String())
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}
	return ms, nil
}

// ExtractRange cuts [startMs, startMs+durationMs) into an independent file.
func (f *FFmpeg) ExtractRange(ctx context.Context, path string, startMs, durationMs int64, out string) error {
	args := []string{
		"-y",
		"-i", path,
		"-ss", formatSeconds(startMs),
		"-t", formatSeconds(durationMs),
	}
	if f.Reencode {
		args = append(args, "-c:v", "libx264", "-preset", "ultrafast", "-an")
	} else {
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
	}
	args = append(args, out)

	return f.run(ctx, args, fmt.Sprintf("extracting range %dms+%dms", startMs, durationMs))
}

// ExtractFrame writes a single frame at tsMs as a high-quality JPEG.
func (f *FFmpeg) ExtractFrame(ctx context.Context, path string, tsMs int64, out string) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(tsMs),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		out,
	}
	return f.run(ctx, args, fmt.Sprintf("extracting frame at %dms", tsMs))
}

// BurnTimecode overlays a running millisecond counter on every frame. This
// is the dominant preprocessing cost and must run at most once per mission,
// never per segment.
func (f *FFmpeg) BurnTimecode(ctx context.Context, path, out string) error {
	filter := "drawtext=text='%{eif\\:t*1000\\:d} ms':x=10:y=h-th-10:fontsize=28:fontcolor=white:box=1:boxcolor=black@0.5"
	args := []string{
		"-y",
		"-i", path,
		"-vf", filter,
		"-c:v", "libx264", "-preset", "ultrafast",
		"-c:a", "copy",
		out,
	}
	return f.run(ctx, args, "burning timecode")
}

func (f *FFmpeg) run(ctx context.Context, args []string, action string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Debug("Running ffmpeg", "action", action, "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", action, err, lastLine(stderr.String()))
	}
	return nil
}

// parseBannerDuration extracts "Duration: HH:MM:SS.cc" from ffmpeg stderr
// output and converts it to milliseconds.
func parseBannerDuration(output string) (int64, error) {
	const prefix = "Duration: "
	start := strings.Index(output, prefix)
	if start == -1 {
		return 0, errors.New("duration not found in ffmpeg output")
	}
	start += len(prefix)

	end := strings.Index(output[start:], ",")
	if end == -1 {
		return 0, errors.New("malformed duration in ffmpeg output")
	}

	parts := strings.Split(output[start:start+end], ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed duration %q", output[start:start+end])
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}

	return int64((hours*3600 + minutes*60 + seconds) * 1000), nil
}

// formatSeconds renders a millisecond offset as fractional seconds for
// ffmpeg -ss/-t arguments.
func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
