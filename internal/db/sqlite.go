package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type SqliteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSqliteService(log *logger.Logger) (*SqliteService, error) {
	serviceLog := log.With("service", "SqliteService")

	dataDir := envutil.String("DATA_DIR", "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	busyTimeoutMs := envutil.Int("SQLITE_BUSY_TIMEOUT_MS", 30000)

	dbPath := filepath.Join(dataDir, "sqlite.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", dbPath, busyTimeoutMs)

	log.Info("Opening sqlite database...", "path", dbPath)
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error("Failed to open sqlite database", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite allows one writer at a time; a single pooled connection keeps
	// writers serialized on this side of the driver too.
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SqliteService{db: gormDB, log: serviceLog}, nil
}

func (s *SqliteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	err := s.db.AutoMigrate(
		&types.Brain{},
		&types.Pdf{},
		&types.TextFile{},
		&types.MdFile{},
		&types.DocxFile{},
		&types.Memo{},
		&types.ChatSession{},
		&types.Chat{},
		&types.ChatCounter{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for sqlite tables", "error", err)
		return err
	}
	return nil
}

func (s *SqliteService) DB() *gorm.DB {
	return s.db
}
