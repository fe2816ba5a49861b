// Package storage implements the companion repositories on top of gorm.
package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store holds the DB pool and repositories.
type Store struct {
	db       *gorm.DB
	Settings *SettingsRepo
	Memories *MemoryRepo
	Checkins *CheckinRepo
	Insights *InsightRepo
	Diary    *DiaryRepo
}

// NewStore opens the database named by databaseURL and wires the repositories.
// postgres:// URLs use PostgreSQL; sqlite:// URLs, file: DSNs and ":memory:" use SQLite.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	dialector, err := openDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classify("ping", err))
	}
	if db.Dialector.Name() == "sqlite" {
		// 单连接，避免 :memory: 数据库在不同连接间不可见。
		sqlDB.SetMaxOpenConns(1)
	}

	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wires repositories around an existing gorm handle.
func NewStoreFromDB(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Settings: NewSettingsRepo(db),
		Memories: NewMemoryRepo(db),
		Checkins: NewCheckinRepo(db),
		Insights: NewInsightRepo(db),
		Diary:    NewDiaryRepo(db),
	}
}

func openDialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://")), nil
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return sqlite.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

// Migrate creates or updates the application tables.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", classify("migrate", err))
		}
	}
	if err := db.AutoMigrate(
		&settingsModel{},
		&memoryModel{},
		&checkinModel{},
		&insightModel{},
		&diaryEntryModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", classify("migrate", err))
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return classify("ping", sqlDB.PingContext(ctx))
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
