package database

import (
	"wedding-registry/config"
	"wedding-registry/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.DBLogLevel)),
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("✅ Database connected successfully")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("✅ Database migrated successfully")

	DB = db
	return db, nil
}

// Migrate creates or updates every table the registry owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Invitation{},
		&models.Guest{},
		&models.Gift{},
		&models.ExternalLink{},
		&models.ContributionIntent{},
		&models.Question{},
		&models.Answer{},
	)
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
