package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

// Connect opens the report database. DSNs prefixed with sqlite: or file: use
// the embedded sqlite driver; everything else is treated as PostgreSQL.
func Connect(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(trimmed, "sqlite:"):
		return ConnectSQLite(strings.TrimPrefix(trimmed, "sqlite:"))
	case strings.HasPrefix(trimmed, "file:"):
		return ConnectSQLite(trimmed)
	default:
		return ConnectPostgres(trimmed)
	}
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite opens a sqlite database, used for local runs and tests.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn must not be empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the grading schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Quiz{},
		&models.QuizSlot{},
		&models.QuizAttempt{},
		&models.QuestionAttempt{},
		&models.QuestionAttemptStep{},
		&models.ActivityLog{},
	)
}
