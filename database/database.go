package database

import (
	"fmt"
	"os"
	"path/filepath"

	"healthscreen/config"
	"healthscreen/logging"
	"healthscreen/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database.
// For sqlite, "memory" (or an empty DSN) selects a shared in-memory database and anything else
// is a file path. For postgres the DSN is passed through.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	log = log.Named("Database")
	gormConfig := &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		log.Info("Connecting to PostgreSQL")
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "memory" || dsn == "" {
			log.Info("Initializing in-memory SQLite database")
			dsn = "file::memory:?cache=shared"
		} else {
			log.Info("Initializing file-based SQLite database", zap.String("path", dsn))
			if dir := filepath.Dir(dsn); dir != "." && dir != "/" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
				}
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (driver '%s'): %w", cfg.Driver, err)
	}
	log.Info("Database connection established")
	return db, nil
}

// Migrate creates or updates the tables of every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.AssessmentRecord{},
		&models.GuestQuota{},
		&models.Plan{},
		&models.PlanTask{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
