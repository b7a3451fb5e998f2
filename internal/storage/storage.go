// Package storage persists missions, trajectories, segments and landmarks.
// Postgres is preferred; a run falls back to SQLite when it is unreachable
// so results are never lost to a missing database.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marsyard/scout/internal/model"
	"github.com/marsyard/scout/internal/queue"
)

// Manager owns the database connection for one run.
type Manager struct {
	DB          *gorm.DB
	SqlDB       *sql.DB
	IsValid     bool
	UsingSqlite bool
	Logger      zerolog.Logger

	// trajectory samples are buffered and written in batches; everything
	// else is small enough to write directly
	samples *queue.Buffer[model.TrajectorySample]
}

// NewManager creates an unconnected manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger:  log,
		samples: queue.NewBuffer[model.TrajectorySample](),
	}
}

// Connect establishes the database connection, falling back to SQLite when
// Postgres is unreachable.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = m.openPostgres()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres, trying SQLite")
		m.UsingSqlite = true
		m.DB, err = m.openSqlite(viper.GetString("db.sqlitePath"))
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	if err := m.SqlDB.Ping(); err != nil {
		m.Logger.Error().Err(err).Msg("Connection did not validate, trying SQLite")
		m.UsingSqlite = true
		m.DB, err = m.openSqlite(viper.GetString("db.sqlitePath"))
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
		m.SqlDB, err = m.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
	}

	m.IsValid = true
	if !m.UsingSqlite {
		m.SqlDB.SetMaxOpenConns(10)
	}

	m.Logger.Info().Bool("sqlite", m.UsingSqlite).Msg("Connected to database")
	return nil
}

func (m *Manager) openPostgres() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	m.Logger.Debug().Str("host", viper.GetString("db.host")).Msg("Connecting to Postgres")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// openSqlite opens a file-backed SQLite database, or an in-memory one when
// path is empty.
func (m *Manager) openSqlite(path string) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	m.Logger.Info().Str("dsn", dsn).Msg("Using local SQLite DB")
	return db, nil
}

// Setup migrates the schema.
func (m *Manager) Setup() error {
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CreateMission inserts the mission record and returns it with its key set.
func (m *Manager) CreateMission(mission *model.Mission) error {
	if err := m.DB.Create(mission).Error; err != nil {
		return fmt.Errorf("creating mission: %w", err)
	}
	return nil
}

// BufferSamples queues trajectory samples for a later batched write.
func (m *Manager) BufferSamples(samples ...model.TrajectorySample) {
	m.samples.Push(samples...)
}

// FlushSamples writes all buffered samples under the given mission key.
func (m *Manager) FlushSamples(missionID uint) error {
	batch := m.samples.Drain()
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		batch[i].MissionID = missionID
	}
	if err := m.DB.CreateInBatches(batch, 2000).Error; err != nil {
		return fmt.Errorf("writing %d trajectory samples: %w", len(batch), err)
	}
	m.Logger.Debug().Int("count", len(batch)).Msg("Flushed trajectory samples")
	return nil
}

// SaveSegments persists the extracted segment records.
func (m *Manager) SaveSegments(missionID uint, segments []model.VideoSegment) error {
	if len(segments) == 0 {
		return nil
	}
	for i := range segments {
		segments[i].MissionID = missionID
	}
	if err := m.DB.Create(segments).Error; err != nil {
		return fmt.Errorf("writing segments: %w", err)
	}
	return nil
}

// SaveLandmarks persists confirmed landmarks.
func (m *Manager) SaveLandmarks(missionID uint, landmarks []model.ConfirmedLandmark) error {
	if len(landmarks) == 0 {
		return nil
	}
	for i := range landmarks {
		landmarks[i].MissionID = missionID
	}
	if err := m.DB.Create(landmarks).Error; err != nil {
		return fmt.Errorf("writing landmarks: %w", err)
	}
	return nil
}

// SaveReport persists the end-of-run summary.
func (m *Manager) SaveReport(report *model.RunReport) error {
	if err := m.DB.Create(report).Error; err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}
