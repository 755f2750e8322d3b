// Package db opens the log database and keeps the locally owned tables
// migrated.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icco/vodrec/lib/config"
	"github.com/icco/vodrec/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database: MySQL for the production log
// source, SQLite for local development and tests.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		enableSQLiteOptimizations(gdb, logger)
	}

	if err := gdb.AutoMigrate(&models.Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return gdb, nil
}

// enableSQLiteOptimizations applies SQLite pragmas. Failures are logged and
// skipped; none of them are required for correctness.
func enableSQLiteOptimizations(db *gorm.DB, logger *slog.Logger) {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	ctx := context.Background()
	for _, pragma := range pragmas {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		}
	}
}
