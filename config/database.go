package config

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
)

// Connect establishes a connection to the PostgreSQL database and bounds
// the connection pool. Pool capacity limits the number of concurrently
// in-flight transactional operations; callers past capacity queue.
func Connect(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established successfully")
	return db, nil
}

// Migrate runs schema migration for every model in dependency order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ElectricianDetail{},
		&models.Customer{},
		&models.Task{},
		&models.TaskMaterial{},
		&models.TaskCompletion{},
		&models.TaskRating{},
		&models.Issue{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.Report{},
	)
}
