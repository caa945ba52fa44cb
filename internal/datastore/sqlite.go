package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/errors"
)

// SQLiteStore implements DataStore for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection, applies the WAL journaling
// pragmas, runs migration and loads the spatial index.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Database.Path

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(store.Settings.Debug)),
	})
	if err != nil {
		return errors.Newf("failed to open SQLite database %s: %w", path, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	// Readers run concurrently with the single writer through WAL.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return errors.Newf("failed to exec %q: %w", pragma, err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
	}

	store.DB = db

	if err := performAutoMigration(db, store.Settings.Debug, "SQLite", path); err != nil {
		return err
	}

	if store.index != nil {
		if err := store.loadSpatialIndex(); err != nil {
			return err
		}
		logger.Info("Spatial index loaded", "systems", store.index.Len())
	} else {
		logger.Warn("Spatial index disabled, radius queries fall back to linear scan")
	}

	return nil
}

// Close closes the underlying database connection.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	return sqlDB.Close()
}

func gormLogLevel(debug bool) gormlogger.LogLevel {
	if debug {
		return gormlogger.Info
	}
	return gormlogger.Warn
}
