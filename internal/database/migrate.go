package database

import (
	"gorm.io/gorm"

	"github.com/roumel00/skeleton/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.PasswordResetToken{},
	)
}
