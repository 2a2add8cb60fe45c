package database

import (
	"fmt"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

func InitGorm(cfg *config.Config) {
	var err error
	if cfg.UsePostgres() {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		GormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		GormDB, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	logrus.Info("Connected to database")

	err = GormDB.AutoMigrate(
		&models.Campaign{},
		&models.Session{},
		&models.Template{},
		&models.DispatchRecord{},
	)
	if err != nil {
		logrus.Fatalf("Failed to run auto-migration: %v", err)
	}

	logrus.Info("Database migration completed")
}
