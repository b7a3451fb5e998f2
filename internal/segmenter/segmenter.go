// Package segmenter slices a mission recording into fixed time windows and
// attaches the trajectory samples covered by each window.
package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/marsyard/scout/internal/model"
	"github.com/marsyard/scout/internal/video"
)

// DefaultWindowMs is the segment window applied when none is configured.
const DefaultWindowMs int64 = 300_000

// ErrZeroDuration is returned when the recording's duration cannot be
// determined or is not positive. Fatal for the run.
var ErrZeroDuration = errors.New("recording has unknown or zero duration")

// Segmenter cuts a recording into windows using the external toolchain.
type Segmenter struct {
	toolchain video.Toolchain
	logger    *slog.Logger

	// OutputDir receives one file per segment (and the timecoded master
	// when burning is enabled).
	OutputDir string
	// Workers bounds concurrent extractions. Values < 1 mean sequential.
	Workers int
	// BurnTimecode re-encodes the whole recording once with an on-screen
	// timecode before slicing.
	BurnTimecode bool
}

// New creates a Segmenter writing segment files to outputDir.
func New(tc video.Toolchain, logger *slog.Logger, outputDir string) *Segmenter {
	return &Segmenter{
		toolchain: tc,
		logger:    logger,
		OutputDir: outputDir,
		Workers:   1,
	}
}

// Segment splits the recording into contiguous, non-overlapping windows
// covering [0, duration). The final window holds the remainder. A failed
// extraction skips only that segment; the returned slice stays in window
// order. Returns the segments, the number skipped, and a fatal error only
// for duration or timecode-burn failures.
func (s *Segmenter) Segment(
	ctx context.Context,
	missionTag, path string,
	trajectory []model.TrajectorySample,
	windowMs int64,
) ([]model.VideoSegment, int, error) {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}

	durationMs, err := s.toolchain.Probe(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrZeroDuration, err)
	}
	if durationMs <= 0 {
		return nil, 0, ErrZeroDuration
	}

	s.logger.Info("Recording probed", "mission", missionTag, "durationMs", durationMs, "windowMs", windowMs)

	source := path
	if s.BurnTimecode {
		timecoded := filepath.Join(s.OutputDir, missionTag+"_timecoded"+filepath.Ext(path))
		if err := s.toolchain.BurnTimecode(ctx, path, timecoded); err != nil {
			return nil, 0, fmt.Errorf("burning timecode: %w", err)
		}
		source = timecoded
	}

	count := int((durationMs + windowMs - 1) / windowMs)
	results := make([]*model.VideoSegment, count)

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			startMs := int64(idx) * windowMs
			endMs := startMs + windowMs
			if endMs > durationMs {
				endMs = durationMs
			}

			out := filepath.Join(s.OutputDir,
				fmt.Sprintf("%s_segment_%03d%s", missionTag, idx+1, filepath.Ext(path)))

			if err := s.toolchain.ExtractRange(ctx, source, startMs, endMs-startMs, out); err != nil {
				s.logger.Warn("Segment extraction failed, skipping",
					"mission", missionTag, "segment", idx, "error", err)
				return
			}

			results[idx] = &model.VideoSegment{
				MissionTag:    missionTag,
				Index:         idx,
				FilePath:      out,
				WindowStartMs: startMs,
				WindowEndMs:   endMs,
				Trajectory:    samplesInWindow(trajectory, startMs, endMs),
			}
		}(i)
	}
	wg.Wait()

	// restore segment-index order, dropping skipped slots
	segments := make([]model.VideoSegment, 0, count)
	skipped := 0
	for _, r := range results {
		if r == nil {
			skipped++
			continue
		}
		segments = append(segments, *r)
	}

	s.logger.Info("Recording segmented",
		"mission", missionTag, "segments", len(segments), "skipped", skipped)

	return segments, skipped, nil
}

// samplesInWindow selects trajectory samples with start <= t < end. The
// exclusive end avoids double-assignment at window boundaries.
func samplesInWindow(trajectory []model.TrajectorySample, startMs, endMs int64) []model.TrajectorySample {
	var out []model.TrajectorySample
	for _, p := range trajectory {
		if p.TimestampMs >= startMs && p.TimestampMs < endMs {
			out = append(out, p)
		}
	}
	return out
}
