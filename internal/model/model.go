package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Mission{},
	&TrajectorySample{},
	&VideoSegment{},
	&ConfirmedLandmark{},
	&RunReport{},
}

// Mission is one end-to-end run over a recording and a trajectory log.
type Mission struct {
	gorm.Model
	MissionID  string    `json:"missionId" gorm:"size:127;uniqueIndex"`
	VideoPath  string    `json:"videoPath" gorm:"size:512"`
	MapPath    string    `json:"mapPath" gorm:"size:512"`
	StartTime  time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_mission_start"`
	DurationMs int64     `json:"durationMs"`

	TrajectorySamples []TrajectorySample  `json:"-"`
	VideoSegments     []VideoSegment      `json:"-"`
	Landmarks         []ConfirmedLandmark `json:"-"`
}

func (*Mission) TableName() string {
	return "missions"
}

// TrajectorySample is a single timestamped vehicle pose in the world/map frame.
// Samples are immutable once ingested; a mission holds an ordered, possibly
// non-uniform sequence of them.
type TrajectorySample struct {
	ID          uint    `json:"-" gorm:"primarykey"`
	MissionID   uint    `json:"-" gorm:"index:idx_sample_mission"`
	TimestampMs int64   `json:"timestamp_ms"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	HeadingDeg  float64 `json:"heading_deg"`
}

func (*TrajectorySample) TableName() string {
	return "trajectory_samples"
}

// VideoSegment is one fixed-duration slice of the mission recording,
// extracted to its own file, with the trajectory samples whose timestamps
// fall inside [WindowStartMs, WindowEndMs).
type VideoSegment struct {
	ID            uint   `json:"-" gorm:"primarykey"`
	MissionID     uint   `json:"-" gorm:"index:idx_segment_mission"`
	MissionTag    string `json:"missionId" gorm:"size:127"`
	Index         int    `json:"index"`
	FilePath      string `json:"filePath" gorm:"size:512"`
	WindowStartMs int64  `json:"windowStartMs"`
	WindowEndMs   int64  `json:"windowEndMs"`

	Trajectory []TrajectorySample `json:"-" gorm:"-"`
}

func (*VideoSegment) TableName() string {
	return "video_segments"
}

// Observation is a candidate point-of-interest parsed from one segment's
// analysis reply. All timestamps are local to the owning segment; mission
// time is derived by adding the segment window start.
type Observation struct {
	CandidateID      string `json:"candidateId"`
	Description      string `json:"description"`
	Reasoning        string `json:"reasoning"`
	StartMs          int64  `json:"startMs"`
	EndMs            int64  `json:"endMs"`
	BestVisibilityMs int64  `json:"bestVisibilityMs"`
}

// ConfirmedLandmark is an observation promoted to a localized, report-ready
// record after frame extraction and trajectory correlation. Immutable.
type ConfirmedLandmark struct {
	gorm.Model
	LandmarkID          string           `json:"landmarkId" gorm:"size:127;index:idx_landmark_id"`
	MissionID           uint             `json:"-" gorm:"index:idx_landmark_mission"`
	MissionTag          string           `json:"missionId" gorm:"size:127"`
	Seq                 int              `json:"seq"`
	ImagePath           string           `json:"imagePath" gorm:"size:512"`
	Name                string           `json:"name" gorm:"size:255"`
	Description         string           `json:"description" gorm:"size:4000"`
	AnalysisText        string           `json:"analysisText" gorm:"size:8000"`
	Location            TrajectorySample `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Position            geom.Point       `json:"position"` // EPSG:3857 when the map carries a geodetic reference
	ObservedAtMissionMs int64            `json:"observedAtMissionMs"`
	Observation         datatypes.JSON   `json:"observation"` // raw parsed observation for traceability
}

func (*ConfirmedLandmark) TableName() string {
	return "confirmed_landmarks"
}

// RunReport is the persisted end-of-run summary.
type RunReport struct {
	gorm.Model
	MissionID           uint   `json:"-" gorm:"index:idx_report_mission"`
	MissionTag          string `json:"missionId" gorm:"size:127"`
	SegmentsTotal       int    `json:"segmentsTotal"`
	SegmentsProcessed   int    `json:"segmentsProcessed"`
	SegmentsSkipped     int    `json:"segmentsSkipped"`
	ObservationsFound   int    `json:"observationsFound"`
	ObservationsDropped int    `json:"observationsDropped"`
	LandmarksConfirmed  int    `json:"landmarksConfirmed"`
	CallsFailed         int    `json:"callsFailed"`
	MapImagePath        string `json:"mapImagePath" gorm:"size:512"`
	ElapsedMs           int64  `json:"elapsedMs"`
}

func (*RunReport) TableName() string {
	return "run_reports"
}
