package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"pkt.systems/pslog"
)

// Entry is a single key-value row.
type Entry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Entry) TableName() string {
	return "kv_entries"
}

// SQLStore persists key-value entries in a gorm database.
type SQLStore struct {
	db  *gorm.DB
	log pslog.Logger
}

// OpenSQLite opens (or creates) a sqlite database at path and migrates it.
func OpenSQLite(path string, log pslog.Logger) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if log != nil {
		log = log.With("sqlite", path)
	}
	return NewSQLStore(db, log)
}

// NewSQLStore wraps an existing gorm connection and migrates the entry table.
func NewSQLStore(db *gorm.DB, log pslog.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("persist: migrate: %w", err)
	}
	return &SQLStore{db: db, log: log}, nil
}

// Get reads the value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if s.log != nil {
			s.log.Debug("store get miss", "key", key)
		}
		return nil, false, nil
	}
	if err != nil {
		if s.log != nil {
			s.log.Warn("store get failed", "key", key, "err", err)
		}
		return nil, false, fmt.Errorf("persist: get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts the value stored under key.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		if s.log != nil {
			s.log.Warn("store set failed", "key", key, "err", result.Error)
		}
		return fmt.Errorf("persist: set %s: %w", key, result.Error)
	}
	if s.log != nil {
		s.log.Trace("store set ok", "key", key, "bytes", len(value))
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
