package services

import (
	"log"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mailscout/mailscout-backend/models"
)

var DB *gorm.DB

func InitDB() {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		os.MkdirAll("data", os.ModePerm)
		dbPath = filepath.Join("data", "mailscout.db")
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.RequestLog{},
		&models.UsageLog{},
	)
	if err != nil {
		log.Fatalf("failed to auto-migrate database: %v", err)
	}

	log.Printf("SQLite database ready at %s", dbPath)
}
