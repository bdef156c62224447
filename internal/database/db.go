package database

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Message{},
		&models.Preferences{},
		&models.Log{},
	); err != nil {
		return err
	}

	// 去重依赖 external_id 的唯一索引，代码里的查重只是快路径
	if db.Migrator().HasTable(&models.Message{}) {
		if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_external_id ON messages(external_id)").Error; err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				log.Printf("[Migration] Warning: failed to ensure external_id index: %v", err)
			}
		}
	}

	// Databases created before these columns carried defaults keep NULLs
	db.Model(&models.Preferences{}).Where("default_provider = '' OR default_provider IS NULL").Update("default_provider", "openai")
	db.Model(&models.Message{}).Where("status = '' OR status IS NULL").Update("status", models.StatusPending)

	return nil
}
