// Package database opens the gorm connection for the configured driver.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"geosafe/internal/config"
)

// Open connects to the database named by cfg. SQLite is the default; an
// empty DSN selects a private in-memory database.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	case "pg", "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg.DSN, gormCfg)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func openSQLite(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "file::memory:"
	}
	if err := ensureSQLiteDirectory(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer at a time. A single pooled connection turns
	// lock contention into queueing instead of SQLITE_BUSY errors.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func ensureSQLiteDirectory(dsn string) error {
	candidate := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == "" || strings.HasPrefix(candidate, ":memory:") {
		return nil
	}
	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}
