package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
)

// Connect открывает пул GORM по DSN из конфигурации и проверяет соединение
func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return db, nil
}

// AutoMigrate выполняет миграцию моделей сервиса
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Media{},
		&models.JobPosting{},
		&models.JobApplication{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	logger.Info("AutoMigrate completed")
	return nil
}
