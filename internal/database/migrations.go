package database

import (
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Booking{},
		&models.Review{},
		&models.Message{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.Report{},
	)
	if err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Serves the periodic cleanup of read notifications.
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_notifications_read_cleanup
			ON notifications (created_at) WHERE is_read`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
