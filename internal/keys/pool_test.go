package keys

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/ratelimit"
	"github.com/unicore-lms/aicore/internal/secrets"
	"gorm.io/gorm"
)

func testPool(t *testing.T) (*PoolManager, *gorm.DB, *secrets.Cipher) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	cipher, errCipher := secrets.NewCipher("test-secret")
	if errCipher != nil {
		t.Fatalf("new cipher: %v", errCipher)
	}
	limiter := ratelimit.NewManager(nil, nil, nil)
	return NewPoolManager(conn, cipher, limiter), conn, cipher
}

func seedCredential(t *testing.T, conn *gorm.DB, cipher *secrets.Cipher, label, secret string, priority int) *models.Credential {
	t.Helper()
	encrypted, errEncrypt := cipher.Encrypt(secret)
	if errEncrypt != nil {
		t.Fatalf("encrypt: %v", errEncrypt)
	}
	row := models.Credential{
		Label:           label,
		Provider:        "openai",
		Priority:        priority,
		EncryptedSecret: encrypted,
		SecretHint:      secrets.Hint(secret),
		Status:          models.CredentialStatusActive,
		RPMLimit:        models.DefaultRPMLimit,
	}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("create credential: %v", errCreate)
	}
	return &row
}

func TestPoolSelect_PriorityOrder(t *testing.T) {
	pool, conn, cipher := testPool(t)
	seedCredential(t, conn, cipher, "backup", "sk-backup", 10)
	seedCredential(t, conn, cipher, "primary", "sk-primary", 1)

	lease, err := pool.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if lease.Label != "primary" {
		t.Fatalf("lease label = %q, want primary", lease.Label)
	}
	if lease.Secret != "sk-primary" {
		t.Fatalf("lease secret = %q", lease.Secret)
	}
}

func TestPoolSelect_SkipsCooldownAndDisabled(t *testing.T) {
	pool, conn, cipher := testPool(t)
	cooling := seedCredential(t, conn, cipher, "cooling", "sk-cooling", 1)
	until := time.Now().UTC().Add(time.Minute)
	conn.Model(cooling).Updates(map[string]any{
		"status":         models.CredentialStatusCooldown,
		"cooldown_until": until,
	})
	dead := seedCredential(t, conn, cipher, "dead", "sk-dead", 2)
	conn.Model(dead).Update("disabled", true)
	seedCredential(t, conn, cipher, "healthy", "sk-healthy", 3)

	lease, err := pool.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if lease.Label != "healthy" {
		t.Fatalf("lease label = %q, want healthy", lease.Label)
	}
}

func TestPoolSelect_EmptyPool(t *testing.T) {
	pool, _, _ := testPool(t)

	if _, err := pool.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected ErrNoCredentialAvailable, got %v", err)
	}
}

func TestPoolReportFailure_RateLimitStartsCooldown(t *testing.T) {
	pool, conn, cipher := testPool(t)
	row := seedCredential(t, conn, cipher, "primary", "sk-primary", 1)

	lease := Lease{CredentialID: row.ID, Label: row.Label}
	pool.ReportFailure(context.Background(), lease, "429 too many requests", true)

	var updated models.Credential
	if errFind := conn.First(&updated, row.ID).Error; errFind != nil {
		t.Fatalf("find credential: %v", errFind)
	}
	if updated.Status != models.CredentialStatusCooldown {
		t.Fatalf("status = %q, want cooldown", updated.Status)
	}
	if updated.CooldownUntil == nil {
		t.Fatalf("expected cooldown timestamp")
	}
	if updated.Disabled {
		t.Fatalf("rate limit should not disable the credential")
	}
}

func TestPoolSelect_CooldownExpires(t *testing.T) {
	pool, conn, cipher := testPool(t)
	row := seedCredential(t, conn, cipher, "primary", "sk-primary", 1)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pool.nowFn = func() time.Time { return base }

	lease := Lease{CredentialID: row.ID, Label: row.Label}
	pool.ReportFailure(context.Background(), lease, "429 too many requests", true)

	if _, err := pool.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected cooldown to block selection, got %v", err)
	}

	pool.nowFn = func() time.Time { return base.Add(models.CredentialCooldown + time.Second) }

	recovered, err := pool.Select(context.Background())
	if err != nil {
		t.Fatalf("Select after cooldown expiry: %v", err)
	}
	if recovered.CredentialID != row.ID {
		t.Fatalf("lease credential = %d, want %d", recovered.CredentialID, row.ID)
	}
	if recovered.Secret != "sk-primary" {
		t.Fatalf("lease secret = %q", recovered.Secret)
	}
}

func TestPoolReportFailure_StreakDisables(t *testing.T) {
	pool, conn, cipher := testPool(t)
	row := seedCredential(t, conn, cipher, "flaky", "sk-flaky", 1)

	lease := Lease{CredentialID: row.ID, Label: row.Label}
	for i := 0; i < models.CredentialErrorThreshold; i++ {
		pool.ReportFailure(context.Background(), lease, "boom", false)
	}

	var updated models.Credential
	if errFind := conn.First(&updated, row.ID).Error; errFind != nil {
		t.Fatalf("find credential: %v", errFind)
	}
	if !updated.Disabled {
		t.Fatalf("expected credential disabled after %d failures", models.CredentialErrorThreshold)
	}
	if updated.Status != models.CredentialStatusError {
		t.Fatalf("status = %q, want error", updated.Status)
	}
}

func TestPoolReportSuccess_ResetsStreak(t *testing.T) {
	pool, conn, cipher := testPool(t)
	row := seedCredential(t, conn, cipher, "primary", "sk-primary", 1)

	lease := Lease{CredentialID: row.ID, Label: row.Label}
	pool.ReportFailure(context.Background(), lease, "boom", false)
	pool.ReportFailure(context.Background(), lease, "boom", false)
	pool.ReportSuccess(context.Background(), lease, 120*time.Millisecond)

	var updated models.Credential
	if errFind := conn.First(&updated, row.ID).Error; errFind != nil {
		t.Fatalf("find credential: %v", errFind)
	}
	if updated.ErrorCount != 0 {
		t.Fatalf("error count = %d, want 0", updated.ErrorCount)
	}
	if updated.Status != models.CredentialStatusActive {
		t.Fatalf("status = %q, want active", updated.Status)
	}
	if updated.LastSuccessAt == nil {
		t.Fatalf("expected success timestamp")
	}
}

func TestPoolHealthStatus_OmitsSecrets(t *testing.T) {
	pool, conn, cipher := testPool(t)
	seedCredential(t, conn, cipher, "primary", "sk-live-abcdef123456", 1)

	health, err := pool.HealthStatus(context.Background())
	if err != nil {
		t.Fatalf("HealthStatus: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("health entries = %d, want 1", len(health))
	}
	if health[0].SecretHint == "sk-live-abcdef123456" {
		t.Fatalf("health output leaked the raw secret")
	}
	if health[0].SecretHint == "" {
		t.Fatalf("expected masked hint")
	}
}
