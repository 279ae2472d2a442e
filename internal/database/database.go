package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skillbridge/internal/config"
)

// InitDatabase opens a PostgreSQL connection from config and returns the GORM instance.
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate runs AutoMigrate for every entity in dependency order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Company{},
		&User{},
		&JobPosting{},
		&Application{},
		&Category{},
		&Course{},
		&Enrollment{},
		&Topic{},
		&Quiz{},
		&Question{},
		&Answer{},
		&QuizSubmission{},
		&Certificate{},
		&Community{},
		&ForumThread{},
		&ForumPost{},
	)
}
