// Package correlator promotes parsed observations to localized landmark
// records by extracting their best-visibility frame and matching them
// against the trajectory.
package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/marsyard/scout/internal/model"
	"github.com/marsyard/scout/internal/video"
)

// Sequence hands out run-scoped landmark identifiers. Not safe for
// concurrent use; correlation runs sequentially per run.
type Sequence struct {
	missionTag string
	n          int
}

// NewSequence starts a fresh identifier sequence for one run.
func NewSequence(missionTag string) *Sequence {
	return &Sequence{missionTag: missionTag}
}

// Next returns the next identifier and its ordinal, starting at 1.
func (s *Sequence) Next() (string, int) {
	s.n++
	return fmt.Sprintf("LM_%s_%03d", s.missionTag, s.n), s.n
}

// Correlator turns observations into confirmed landmarks. One instance
// serves a whole run.
type Correlator struct {
	toolchain video.Toolchain
	logger    *slog.Logger

	// ImagesDir receives one extracted frame per confirmed landmark.
	ImagesDir string
}

// New creates a Correlator writing landmark frames under imagesDir.
func New(toolchain video.Toolchain, logger *slog.Logger, imagesDir string) *Correlator {
	return &Correlator{
		toolchain: toolchain,
		logger:    logger,
		ImagesDir: imagesDir,
	}
}

// Correlate processes one segment's observations. Each observation gets its
// best-visibility frame extracted from the segment file and its pose matched
// against the trajectory; an observation whose frame cannot be extracted is
// dropped without affecting the rest. The returned dropped count is the
// number of abandoned observations.
func (c *Correlator) Correlate(ctx context.Context, seg model.VideoSegment, observations []model.Observation, trajectory []model.TrajectorySample, ids *Sequence) ([]model.ConfirmedLandmark, int) {
	landmarks := make([]model.ConfirmedLandmark, 0, len(observations))
	dropped := 0

	for _, obs := range observations {
		tsMs := obs.BestVisibilityMs
		if tsMs < 0 {
			c.logger.Warn("Negative best-visibility timestamp, clamping to 0",
				"candidate", obs.CandidateID, "timestampMs", obs.BestVisibilityMs)
			tsMs = 0
		}

		landmarkID, seq := ids.Next()
		imagePath := filepath.Join(c.ImagesDir, fmt.Sprintf("%s_%s.jpg", seg.MissionTag, landmarkID))

		if err := c.extractFrame(ctx, seg.FilePath, tsMs, imagePath); err != nil {
			c.logger.Warn("Dropping observation, frame extraction failed",
				"candidate", obs.CandidateID, "segment", seg.Index, "error", err)
			dropped++
			continue
		}

		missionMs := seg.WindowStartMs + tsMs
		location := nearestSample(trajectory, missionMs)
		if location == nil {
			c.logger.Warn("No trajectory sample available for landmark",
				"landmarkId", landmarkID, "missionMs", missionMs)
			location = &model.TrajectorySample{}
		}

		rawObs, err := json.Marshal(obs)
		if err != nil {
			rawObs = nil
		}

		lm := model.ConfirmedLandmark{
			LandmarkID:          landmarkID,
			MissionTag:          seg.MissionTag,
			Seq:                 seq,
			ImagePath:           imagePath,
			Description:         obs.Description,
			Location:            *location,
			ObservedAtMissionMs: missionMs,
			Observation:         rawObs,
		}
		landmarks = append(landmarks, lm)

		c.logger.Info("Confirmed landmark",
			"landmarkId", landmarkID,
			"segment", seg.Index,
			"missionMs", missionMs,
			"x", location.X, "y", location.Y)
	}

	return landmarks, dropped
}

// extractFrame pulls the frame at tsMs out of the segment, falling back to
// the segment's first frame once before giving up.
func (c *Correlator) extractFrame(ctx context.Context, segPath string, tsMs int64, out string) error {
	err := c.toolchain.ExtractFrame(ctx, segPath, tsMs, out)
	if err == nil {
		return nil
	}
	if tsMs == 0 {
		return err
	}

	c.logger.Debug("Frame extraction failed, retrying at segment start",
		"timestampMs", tsMs, "error", err)
	if retryErr := c.toolchain.ExtractFrame(ctx, segPath, 0, out); retryErr != nil {
		return fmt.Errorf("at %dms: %v; at 0ms: %w", tsMs, err, retryErr)
	}
	return nil
}

// nearestSample finds the trajectory sample with the minimum absolute time
// difference to missionMs. Ties resolve to the earlier sample. Returns nil
// for an empty trajectory.
func nearestSample(trajectory []model.TrajectorySample, missionMs int64) *model.TrajectorySample {
	if len(trajectory) == 0 {
		return nil
	}

	best := 0
	bestDelta := absDelta(trajectory[0].TimestampMs, missionMs)
	for i := 1; i < len(trajectory); i++ {
		if d := absDelta(trajectory[i].TimestampMs, missionMs); d < bestDelta {
			best = i
			bestDelta = d
		}
	}
	return &trajectory[best]
}

func absDelta(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
