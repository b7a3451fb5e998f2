package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsyard/scout/internal/model"
)

// fakeToolchain records calls and fails selected segment indices.
type fakeToolchain struct {
	mu         sync.Mutex
	durationMs int64
	probeErr   error
	failStarts map[int64]bool
	burned     int
	extracts   []int64
}

func (f *fakeToolchain) Probe(ctx context.Context, path string) (int64, error) {
	return f.durationMs, f.probeErr
}

func (f *fakeToolchain) ExtractRange(ctx context.Context, path string, startMs, durationMs int64, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracts = append(f.extracts, startMs)
	if f.failStarts[startMs] {
		return errors.New("simulated extraction failure")
	}
	return nil
}

func (f *fakeToolchain) ExtractFrame(ctx context.Context, path string, tsMs int64, out string) error {
	return nil
}

func (f *fakeToolchain) BurnTimecode(ctx context.Context, path, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burned++
	return nil
}

func newTestSegmenter(tc *fakeToolchain) *Segmenter {
	return New(tc, slog.Default(), "/tmp/segments")
}

func TestSegment_WindowBoundaries(t *testing.T) {
	tc := &fakeToolchain{durationMs: 700_000}
	s := newTestSegmenter(tc)

	segments, skipped, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, segments, 3)

	want := [][2]int64{{0, 300_000}, {300_000, 600_000}, {600_000, 700_000}}
	for i, w := range want {
		assert.Equal(t, i, segments[i].Index)
		assert.Equal(t, w[0], segments[i].WindowStartMs, "segment %d start", i)
		assert.Equal(t, w[1], segments[i].WindowEndMs, "segment %d end", i)
	}
}

func TestSegment_ShortRecordingSingleWindow(t *testing.T) {
	tc := &fakeToolchain{durationMs: 42_000}
	s := newTestSegmenter(tc)

	segments, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, int64(0), segments[0].WindowStartMs)
	assert.Equal(t, int64(42_000), segments[0].WindowEndMs)
}

func TestSegment_ZeroDurationIsFatal(t *testing.T) {
	tc := &fakeToolchain{durationMs: 0}
	s := newTestSegmenter(tc)

	_, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.ErrorIs(t, err, ErrZeroDuration)
}

func TestSegment_ProbeErrorIsFatal(t *testing.T) {
	tc := &fakeToolchain{probeErr: errors.New("ffprobe exploded")}
	s := newTestSegmenter(tc)

	_, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.ErrorIs(t, err, ErrZeroDuration)
}

func TestSegment_ExtractionFailureSkipsOnlyThatSegment(t *testing.T) {
	tc := &fakeToolchain{
		durationMs: 900_000,
		failStarts: map[int64]bool{300_000: true},
	}
	s := newTestSegmenter(tc)

	segments, skipped, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, segments, 2)
	// surviving segments keep their original indices and order
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, 2, segments[1].Index)
}

func TestSegment_TrajectoryAttachmentExclusiveEnd(t *testing.T) {
	var trajectory []model.TrajectorySample
	for ts := int64(0); ts <= 700_000; ts += 100_000 {
		trajectory = append(trajectory, model.TrajectorySample{TimestampMs: ts})
	}

	tc := &fakeToolchain{durationMs: 700_000}
	s := newTestSegmenter(tc)

	segments, _, err := s.Segment(context.Background(), "m1", "mission.mp4", trajectory, 300_000)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	// [0,300000): t=0,100000,200000 — 300000 belongs to the next window
	require.Len(t, segments[0].Trajectory, 3)
	assert.Equal(t, int64(200_000), segments[0].Trajectory[2].TimestampMs)

	// [300000,600000): t=300000,400000,500000
	require.Len(t, segments[1].Trajectory, 3)
	assert.Equal(t, int64(300_000), segments[1].Trajectory[0].TimestampMs)

	// [600000,700000): t=600000 only; 700000 == duration is outside
	require.Len(t, segments[2].Trajectory, 1)
}

func TestSegment_BurnTimecodeRunsOnce(t *testing.T) {
	tc := &fakeToolchain{durationMs: 900_000}
	s := newTestSegmenter(tc)
	s.BurnTimecode = true

	_, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.NoError(t, err)
	assert.Equal(t, 1, tc.burned, "timecode burn must not repeat per segment")
}

func TestSegment_ConcurrentExtractionPreservesOrder(t *testing.T) {
	tc := &fakeToolchain{durationMs: 1_500_000}
	s := newTestSegmenter(tc)
	s.Workers = 4

	segments, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 300_000)
	require.NoError(t, err)
	require.Len(t, segments, 5)
	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, int64(i)*300_000, seg.WindowStartMs)
	}
}

func TestSegment_DefaultWindow(t *testing.T) {
	tc := &fakeToolchain{durationMs: 650_000}
	s := newTestSegmenter(tc)

	segments, _, err := s.Segment(context.Background(), "m1", "mission.mp4", nil, 0)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, fmt.Sprintf("%d", DefaultWindowMs), fmt.Sprintf("%d", segments[0].WindowEndMs))
}
