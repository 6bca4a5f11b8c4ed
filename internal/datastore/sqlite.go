package datastore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.DatabaseSettings
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	path := store.Settings.SQLite.Path
	if path == "" {
		return validationError("sqlite path must not be empty", "database.sqlite.path", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("dir", dir).
				Build()
		}
	}

	gormLogger := logger.NewGormLoggerAdapter(GetLogger(), store.Settings.SlowThreshold.Duration())

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger, NowFunc: func() time.Time { return time.Now().UTC() }})
	if err != nil {
		return dbError(err, "open", errors.PriorityCritical, "db_type", "sqlite", "path", path)
	}

	// a single writer avoids SQLITE_BUSY under concurrent cycle writes
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", errors.PriorityCritical, "db_type", "sqlite")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	if err := performAutoMigration(db, "sqlite"); err != nil {
		return err
	}
	GetLogger().Info("sqlite database opened", logger.String("path", path))
	return nil
}

// Close releases the SQLite connection
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}

// Path returns the database file path.
func (store *SQLiteStore) Path() string {
	return store.Settings.SQLite.Path
}

// Backup writes a consistent snapshot of the database to destPath using
// VACUUM INTO. destPath must not exist.
func (store *SQLiteStore) Backup(ctx context.Context, destPath string) error {
	if err := store.checkOpen("backup"); err != nil {
		return err
	}
	if _, err := os.Stat(destPath); err == nil {
		return validationError("backup destination already exists", "dest", destPath)
	}
	if err := store.DB.WithContext(ctx).Exec("VACUUM INTO ?", destPath).Error; err != nil {
		return dbError(err, "backup", errors.PriorityHigh, "dest", destPath)
	}
	return nil
}
