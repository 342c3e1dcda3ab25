package database

import (
	"errors"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Assignee{},
		&model.Request{},
		&model.TodayCounter{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Seed ensures the reserved guest account and a first admin exist. Kiosk
// submissions are owned by the guest account, so it must always be present.
func Seed(db *gorm.DB, adminPassword string) error {
	var guest model.User
	err := db.Where("is_guest = ?", true).First(&guest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		guest = model.User{Username: "guest", Password: "!", Role: model.RoleInserter, IsGuest: true}
		if err := db.Create(&guest).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if adminPassword == "" {
		return nil
	}
	var admin model.User
	err = db.Where("role = ?", model.RoleAdmin).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin = model.User{Username: "admin", Password: string(hashed), Role: model.RoleAdmin}
		return db.Create(&admin).Error
	}
	return err
}
