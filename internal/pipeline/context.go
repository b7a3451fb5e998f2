package pipeline

import (
	"log/slog"
	"sync"

	"github.com/marsyard/scout/internal/model"
)

// RunContext holds the state shared by the pipeline stages of one run: the
// mission record, the current stage and the running counters. Stage names
// are injected into every log record via logging.ContextHandler.
type RunContext struct {
	mu      sync.RWMutex
	mission *model.Mission
	stage   string

	Summary Summary
}

// Summary is the end-of-run accounting surfaced to the operator and
// persisted as the run report.
type Summary struct {
	SegmentsTotal       int
	SegmentsProcessed   int
	SegmentsSkipped     int
	ObservationsFound   int
	ObservationsDropped int
	LandmarksConfirmed  int
	CallsFailed         int
	AnnotationsSkipped  int
}

// NewRunContext creates a run context for the given mission.
func NewRunContext(mission *model.Mission) *RunContext {
	return &RunContext{
		mission: mission,
		stage:   "init",
	}
}

// Mission returns the mission record for this run.
func (rc *RunContext) Mission() *model.Mission {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.mission
}

// SetStage records the currently executing pipeline stage.
func (rc *RunContext) SetStage(stage string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.stage = stage
}

// Stage returns the currently executing pipeline stage.
func (rc *RunContext) Stage() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.stage
}

// LogAttrs returns the attributes injected into every log record while this
// run is active.
func (rc *RunContext) LogAttrs() []slog.Attr {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return []slog.Attr{
		slog.String("mission", rc.mission.MissionID),
		slog.String("stage", rc.stage),
	}
}
