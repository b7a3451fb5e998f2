// Command scout converts a recorded vehicle traversal (video plus a
// timestamped trajectory log) into geo-localized landmarks and an annotated
// mission map.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marsyard/scout/internal/analysis"
	"github.com/marsyard/scout/internal/annotator"
	"github.com/marsyard/scout/internal/config"
	"github.com/marsyard/scout/internal/correlator"
	"github.com/marsyard/scout/internal/influx"
	"github.com/marsyard/scout/internal/logging"
	"github.com/marsyard/scout/internal/parser"
	"github.com/marsyard/scout/internal/pipeline"
	"github.com/marsyard/scout/internal/segmenter"
	"github.com/marsyard/scout/internal/storage"
	"github.com/marsyard/scout/internal/video"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "scout:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configDir  = flag.String("config", ".", "directory containing scout.cfg.json")
		missionTag = flag.String("mission", "", "mission identifier (generated when empty)")
		videoPath  = flag.String("video", "", "path to the mission recording")
		trajPath   = flag.String("trajectory", "", "path to the trajectory CSV log")
		mapPath    = flag.String("map", "", "path to the map metadata YAML (overrides config)")
	)
	flag.Parse()

	if *videoPath == "" || *trajPath == "" {
		return errors.New("both -video and -trajectory are required")
	}

	if err := config.Load(*configDir); err != nil {
		return err
	}

	metadataPath := *mapPath
	if metadataPath == "" {
		metadataPath = config.GetString("map.metadataPath")
	}
	if metadataPath == "" {
		return errors.New("map metadata path missing (-map or map.metadataPath)")
	}

	sessionStart := time.Now()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, "scout", sessionStart))
	if err != nil {
		return fmt.Errorf("creating session log: %w", err)
	}
	defer logFile.Close()

	gelfAddr := ""
	if config.GetBool("graylog.enabled") {
		gelfAddr = config.GetString("graylog.address")
	}

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logFile, config.GetString("logLevel"), gelfAddr)
	defer slogManager.Close()
	logger := slogManager.Logger()

	zlog := logging.NewZerolog(config.GetString("logLevel"), logFile)

	outputDir := config.GetString("outputDir")
	dirs := map[string]string{
		"segments":  filepath.Join(outputDir, "segments"),
		"landmarks": filepath.Join(outputDir, "landmarks"),
		"maps":      filepath.Join(outputDir, "maps"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	toolchain, err := video.NewFFmpeg(logger)
	if err != nil {
		return err
	}
	toolchain.Reencode = config.GetBool("segment.reencode")

	seg := segmenter.New(toolchain, logger, dirs["segments"])
	seg.Workers = config.GetInt("segment.workers")
	seg.BurnTimecode = config.GetBool("segment.burnTimecode")

	caller := analysis.NewClient(
		config.GetString("analysis.endpoint"),
		config.GetString("analysis.apiKey"),
		config.GetString("analysis.model"),
		config.GetFloat("analysis.temperature"),
	)
	engine, err := analysis.NewEngine(caller, logging.NewEngineLogger(zlog))
	if err != nil {
		return fmt.Errorf("creating dispatch engine: %w", err)
	}
	if timeoutMs := config.GetInt("analysis.timeoutMs"); timeoutMs > 0 {
		engine.CallTimeout = time.Duration(timeoutMs) * time.Millisecond
	}

	store := storage.NewManager(zlog)
	if err := store.Connect(); err != nil {
		logger.Warn("Database unavailable, results will not be persisted", "error", err)
		store = nil
	} else {
		if err := store.Setup(); err != nil {
			logger.Warn("Schema migration failed, results will not be persisted", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	var telemetry *influx.Manager
	if config.GetBool("influx.enabled") {
		telemetry = influx.NewManager(zlog, filepath.Join(outputDir, "telemetry_backup.gz"))
		if err := telemetry.Connect(); err != nil {
			logger.Warn("Telemetry disabled", "error", err)
			telemetry = nil
		} else {
			defer telemetry.Close()
		}
	}

	p := &pipeline.Pipeline{
		Segmenter:  seg,
		Engine:     engine,
		Parser:     parser.New(logger),
		Correlator: correlator.New(toolchain, logger, dirs["landmarks"]),
		Annotator:  annotator.New(logger, annotator.Style{}),
		Store:      store,
		Telemetry:  telemetry,
		Logger:     logger,
		MapsDir:    dirs["maps"],
	}

	summary, err := p.Run(context.Background(), pipeline.RunConfig{
		MissionTag:      *missionTag,
		VideoPath:       *videoPath,
		TrajectoryPath:  *trajPath,
		MapMetadataPath: metadataPath,
		WindowMs:        int64(config.GetInt("segment.windowMs")),
	})
	if err != nil {
		return err
	}

	fmt.Println(pipeline.MarshalSummary(summary))
	return nil
}
