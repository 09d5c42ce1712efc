package database

import (
	"fmt"
	"log"

	"stocksync-service/internal/model"
	"stocksync-service/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection with configuration and runs migrations
func InitDB(config *config.Config) error {
	var err error

	// Configure GORM logger
	logLevel := logger.Error
	if config.Server.Env == "development" {
		logLevel = logger.Info
	}

	// Create DSN string
	dsn := config.Database.GetDSN()

	// Configure Postgres options
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	// Open connection
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		return err
	}

	// Get generic database object SQL
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database object: %v", err)
		return err
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.Database.ConnMaxLifetime)

	fmt.Println("Database connected successfully")

	// Run migrations
	if err := db.AutoMigrate(
		&model.InventoryRecord{},
		&model.SyncLogEntry{},
		&model.WebhookEventRecord{},
	); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}
