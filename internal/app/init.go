package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/config"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/security"
)

// minAdminPasswordLength is the shortest accepted bootstrap password.
const minAdminPasswordLength = 6

// HasAdminInitialized reports whether the system has at least one admin account.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Admin{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// CreateAdminUser creates an admin account with a bcrypt-hashed password.
func CreateAdminUser(conn *gorm.DB, username, password string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("admin username is required")
	}
	if len(password) < minAdminPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", minAdminPasswordLength)
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  username,
		Password:  hashedPassword,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	return nil
}

// EnsureAdminFromEnv seeds the first admin account from ADMIN_USERNAME and
// ADMIN_PASSWORD when the admins table is empty. A server with no admin can
// still serve generation traffic, so a missing bootstrap only logs a warning.
func EnsureAdminFromEnv(conn *gorm.DB) error {
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	if initialized {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(config.EnvAdminUsername))
	password := os.Getenv(config.EnvAdminPassword)
	if username == "" || password == "" {
		log.Warnf("no admin account exists; set %s and %s to bootstrap one", config.EnvAdminUsername, config.EnvAdminPassword)
		return nil
	}

	if errCreate := CreateAdminUser(conn, username, password); errCreate != nil {
		return errCreate
	}
	log.Infof("bootstrapped admin account %q", username)
	return nil
}
