// Package pipeline runs the four batch stages that turn a recorded
// traversal into localized landmarks and an annotated map: segment,
// dispatch, correlate, render.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/marsyard/scout/internal/analysis"
	"github.com/marsyard/scout/internal/annotator"
	"github.com/marsyard/scout/internal/correlator"
	"github.com/marsyard/scout/internal/geo"
	"github.com/marsyard/scout/internal/influx"
	"github.com/marsyard/scout/internal/logging"
	"github.com/marsyard/scout/internal/model"
	"github.com/marsyard/scout/internal/parser"
	"github.com/marsyard/scout/internal/segmenter"
	"github.com/marsyard/scout/internal/storage"
	"github.com/marsyard/scout/internal/trajectory"
)

// Pipeline wires the stages together. Store and Telemetry are optional;
// a nil value disables persistence or telemetry without changing the run.
type Pipeline struct {
	Segmenter  *segmenter.Segmenter
	Engine     *analysis.Engine
	Parser     *parser.Parser
	Correlator *correlator.Correlator
	Annotator  *annotator.Annotator
	Store      *storage.Manager
	Telemetry  *influx.Manager
	Logger     *slog.Logger

	// MapsDir receives the annotated output raster.
	MapsDir string

	// log carries the active run's mission and stage attributes on every
	// record; set at the start of Run.
	log *slog.Logger
}

// RunConfig describes one mission run.
type RunConfig struct {
	// MissionTag identifies the run. Empty means a generated tag.
	MissionTag      string
	VideoPath       string
	TrajectoryPath  string
	MapMetadataPath string
	WindowMs        int64
}

// Run executes the whole pipeline for one recording. It returns a fatal
// error only when a precondition fails: unreadable trajectory or map
// metadata, missing toolchain, or a recording without a usable duration.
// Everything downstream is best-effort and accounted in the summary.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (Summary, error) {
	started := time.Now()

	tag := cfg.MissionTag
	if tag == "" {
		tag = uuid.NewString()[:8]
	}

	samples, err := trajectory.Load(cfg.TrajectoryPath, p.Logger)
	if err != nil {
		return Summary{}, err
	}

	meta, err := geo.LoadMapMetadata(cfg.MapMetadataPath)
	if err != nil {
		return Summary{}, err
	}

	mission := &model.Mission{
		MissionID: tag,
		VideoPath: cfg.VideoPath,
		MapPath:   cfg.MapMetadataPath,
		StartTime: started.UTC(),
	}
	rc := NewRunContext(mission)
	p.log = slog.New(logging.NewContextHandler(p.Logger.Handler(), rc.LogAttrs))

	p.log.Info("Run starting", "video", cfg.VideoPath, "samples", len(samples))

	segments, err := p.segmentStage(ctx, rc, cfg, samples)
	if err != nil {
		return rc.Summary, err
	}

	replies := p.dispatchStage(ctx, rc, segments)

	landmarks := p.correlateStage(ctx, rc, segments, replies, samples)
	p.contextualizeStage(ctx, rc, meta, landmarks)

	mapPath := p.renderStage(rc, meta, samples, landmarks)

	rc.Summary.LandmarksConfirmed = len(landmarks)
	p.persist(rc, samples, segments, landmarks, mapPath, time.Since(started))

	rc.SetStage("done")
	p.log.Info("Run complete",
		"mission", tag,
		"landmarks", rc.Summary.LandmarksConfirmed,
		"elapsed", time.Since(started).Round(time.Millisecond))

	return rc.Summary, nil
}

func (p *Pipeline) segmentStage(ctx context.Context, rc *RunContext, cfg RunConfig, samples []model.TrajectorySample) ([]model.VideoSegment, error) {
	rc.SetStage("segment")
	start := time.Now()

	segments, skipped, err := p.Segmenter.Segment(ctx, rc.Mission().MissionID, cfg.VideoPath, samples, cfg.WindowMs)
	if err != nil {
		return nil, fmt.Errorf("segmenting recording: %w", err)
	}

	rc.Summary.SegmentsTotal = len(segments) + skipped
	rc.Summary.SegmentsSkipped = skipped
	if len(segments) > 0 {
		rc.Mission().DurationMs = segments[len(segments)-1].WindowEndMs
	}

	p.stagePoint(rc, "segment", time.Since(start), map[string]interface{}{
		"segments": len(segments),
		"skipped":  skipped,
	})
	return segments, nil
}

// dispatchStage issues one analysis call per segment and returns the replies
// in segment order, failure markers included.
func (p *Pipeline) dispatchStage(ctx context.Context, rc *RunContext, segments []model.VideoSegment) []analysis.Result {
	rc.SetStage("dispatch")
	start := time.Now()

	requests := make([]analysis.Request, len(segments))
	for i, seg := range segments {
		requests[i] = analysis.Request{
			Prompt:      segmentPrompt,
			Kind:        analysis.PayloadVideo,
			PayloadPath: seg.FilePath,
		}
	}

	results := p.Engine.Dispatch(ctx, requests)

	for i, r := range results {
		p.callPoint(rc, i, !r.Failed())
		if r.Failed() {
			rc.Summary.CallsFailed++
			continue
		}
		rc.Summary.SegmentsProcessed++
	}

	p.stagePoint(rc, "dispatch", time.Since(start), map[string]interface{}{
		"calls":  len(results),
		"failed": rc.Summary.CallsFailed,
	})
	return results
}

func (p *Pipeline) correlateStage(ctx context.Context, rc *RunContext, segments []model.VideoSegment, replies []analysis.Result, samples []model.TrajectorySample) []model.ConfirmedLandmark {
	rc.SetStage("correlate")
	start := time.Now()

	ids := correlator.NewSequence(rc.Mission().MissionID)
	var landmarks []model.ConfirmedLandmark

	for i, seg := range segments {
		if replies[i].Failed() {
			p.log.Warn("Skipping segment without analysis reply", "segment", seg.Index)
			continue
		}

		observations := p.Parser.ParseObservations(replies[i].Text)
		rc.Summary.ObservationsFound += len(observations)
		if len(observations) == 0 {
			continue
		}

		confirmed, dropped := p.Correlator.Correlate(ctx, seg, observations, samples, ids)
		rc.Summary.ObservationsDropped += dropped
		landmarks = append(landmarks, confirmed...)
	}

	p.stagePoint(rc, "correlate", time.Since(start), map[string]interface{}{
		"observations": rc.Summary.ObservationsFound,
		"dropped":      rc.Summary.ObservationsDropped,
		"confirmed":    len(landmarks),
	})
	return landmarks
}

// contextualizeStage identifies each landmark from its extracted frame. A
// failed call leaves the record with parser defaults, never drops it.
func (p *Pipeline) contextualizeStage(ctx context.Context, rc *RunContext, meta geo.MapMetadata, landmarks []model.ConfirmedLandmark) {
	rc.SetStage("contextualize")
	start := time.Now()

	requests := make([]analysis.Request, len(landmarks))
	for i, lm := range landmarks {
		requests[i] = analysis.Request{
			Prompt:      contextualPrompt,
			Kind:        analysis.PayloadImage,
			PayloadPath: lm.ImagePath,
		}
	}

	var results []analysis.Result
	if len(requests) > 0 {
		results = p.Engine.Dispatch(ctx, requests)
	}

	for i := range landmarks {
		reply := ""
		if results[i].Failed() {
			rc.Summary.CallsFailed++
			p.log.Warn("Contextual analysis failed, keeping defaults",
				"landmarkId", landmarks[i].LandmarkID, "error", results[i].Err)
		} else {
			reply = results[i].Text
		}

		contextual := p.Parser.ParseContextual(reply)
		landmarks[i].Name = contextual.Name
		if contextual.Description != "N/A" {
			landmarks[i].Description = contextual.Description
		}
		landmarks[i].AnalysisText = contextual.Analysis
		landmarks[i].Position = geo.LandmarkPoint(meta, landmarks[i].Location.X, landmarks[i].Location.Y)
	}

	p.stagePoint(rc, "contextualize", time.Since(start), map[string]interface{}{
		"landmarks": len(landmarks),
	})
}

// renderStage draws the annotated map. Returns the output path, empty when
// rendering failed; a render failure is reported but never fatal.
func (p *Pipeline) renderStage(rc *RunContext, meta geo.MapMetadata, samples []model.TrajectorySample, landmarks []model.ConfirmedLandmark) string {
	rc.SetStage("render")
	start := time.Now()

	out := filepath.Join(p.MapsDir, fmt.Sprintf("%s_annotated.png", rc.Mission().MissionID))
	skipped, err := p.Annotator.Render(meta, samples, landmarks, out)
	rc.Summary.AnnotationsSkipped = skipped
	if err != nil {
		p.log.Error("Map rendering failed", "error", err)
		out = ""
	}

	p.stagePoint(rc, "render", time.Since(start), map[string]interface{}{
		"skipped": skipped,
	})
	return out
}

// persist writes the run to the store when one is connected. Storage
// failures are logged; results on disk are already complete at this point.
func (p *Pipeline) persist(rc *RunContext, samples []model.TrajectorySample, segments []model.VideoSegment, landmarks []model.ConfirmedLandmark, mapPath string, elapsed time.Duration) {
	if p.Store == nil || !p.Store.IsValid {
		return
	}
	rc.SetStage("persist")

	mission := rc.Mission()
	if err := p.Store.CreateMission(mission); err != nil {
		p.log.Error("Persisting mission failed", "error", err)
		return
	}

	p.Store.BufferSamples(samples...)
	if err := p.Store.FlushSamples(mission.ID); err != nil {
		p.log.Error("Persisting trajectory failed", "error", err)
	}
	if err := p.Store.SaveSegments(mission.ID, segments); err != nil {
		p.log.Error("Persisting segments failed", "error", err)
	}
	if err := p.Store.SaveLandmarks(mission.ID, landmarks); err != nil {
		p.log.Error("Persisting landmarks failed", "error", err)
	}

	report := &model.RunReport{
		MissionID:           mission.ID,
		MissionTag:          mission.MissionID,
		SegmentsTotal:       rc.Summary.SegmentsTotal,
		SegmentsProcessed:   rc.Summary.SegmentsProcessed,
		SegmentsSkipped:     rc.Summary.SegmentsSkipped,
		ObservationsFound:   rc.Summary.ObservationsFound,
		ObservationsDropped: rc.Summary.ObservationsDropped,
		LandmarksConfirmed:  rc.Summary.LandmarksConfirmed,
		CallsFailed:         rc.Summary.CallsFailed,
		MapImagePath:        mapPath,
		ElapsedMs:           elapsed.Milliseconds(),
	}
	if err := p.Store.SaveReport(report); err != nil {
		p.log.Error("Persisting run report failed", "error", err)
	}
}

func (p *Pipeline) callPoint(rc *RunContext, index int, ok bool) {
	if p.Telemetry == nil {
		return
	}
	point := influx.CallPoint(rc.Mission().MissionID, index, ok)
	if err := p.Telemetry.WritePoint(context.Background(), "analysis_calls", point); err != nil {
		p.log.Debug("Telemetry write failed", "call", index, "error", err)
	}
}

func (p *Pipeline) stagePoint(rc *RunContext, stage string, elapsed time.Duration, counts map[string]interface{}) {
	if p.Telemetry == nil {
		return
	}
	point := influx.StagePoint(rc.Mission().MissionID, stage, elapsed, counts)
	if err := p.Telemetry.WritePoint(context.Background(), "run_telemetry", point); err != nil {
		p.log.Debug("Telemetry write failed", "stage", stage, "error", err)
	}
}

// MarshalSummary renders the summary as indented JSON for the operator.
func MarshalSummary(s Summary) string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", s)
	}
	return string(b)
}
