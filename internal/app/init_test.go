package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/security"
)

func TestHasAdminInitialized(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	initialized, err := HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false before migrate")
	}

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after migrate: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false with empty admins table")
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  "admin",
		Password:  "hashed-password",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after seed: %v", err)
	}
	if !initialized {
		t.Fatalf("expected initialized=true after admin created")
	}
}

func TestCreateAdminUser(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errCreate := CreateAdminUser(conn, "admin", "short"); errCreate == nil {
		t.Fatalf("expected error for short password")
	}
	if errCreate := CreateAdminUser(conn, " ", "password"); errCreate == nil {
		t.Fatalf("expected error for blank username")
	}

	if errCreate := CreateAdminUser(conn, "admin", "password"); errCreate != nil {
		t.Fatalf("CreateAdminUser: %v", errCreate)
	}

	var admin models.Admin
	if errFind := conn.First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if !admin.Active {
		t.Fatalf("expected admin to be active")
	}
	if admin.Password == "password" {
		t.Fatalf("expected password to be hashed")
	}
	if !security.CheckPassword(admin.Password, "password") {
		t.Fatalf("expected hashed password to verify")
	}
}
