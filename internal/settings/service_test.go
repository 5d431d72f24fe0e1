package settings_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/settings"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestGeneration_Defaults(t *testing.T) {
	conn := openTestDB(t)
	svc := settings.NewService(conn)

	cfg := svc.Generation(context.Background())
	if cfg.ChunkSize != settings.DefaultChunkSize {
		t.Fatalf("chunk size = %d, want %d", cfg.ChunkSize, settings.DefaultChunkSize)
	}
	if cfg.ChunkOverlap != settings.DefaultChunkOverlap {
		t.Fatalf("chunk overlap = %d, want %d", cfg.ChunkOverlap, settings.DefaultChunkOverlap)
	}
	if cfg.Temperature != settings.DefaultTemperature {
		t.Fatalf("temperature = %g, want %g", cfg.Temperature, settings.DefaultTemperature)
	}
	if !cfg.ServiceEnabled {
		t.Fatalf("expected service enabled by default")
	}
}

func TestUpdateGeneration_PersistsAndInvalidates(t *testing.T) {
	conn := openTestDB(t)
	svc := settings.NewService(conn)

	// Prime the cache, then update behind it.
	_ = svc.Generation(context.Background())

	updates := map[string]json.RawMessage{
		settings.ChunkSizeKey:   json.RawMessage("12000"),
		settings.HourlyQuotaKey: json.RawMessage("3"),
	}
	if errUpdate := svc.UpdateGeneration(context.Background(), updates); errUpdate != nil {
		t.Fatalf("UpdateGeneration: %v", errUpdate)
	}

	cfg := svc.Generation(context.Background())
	if cfg.ChunkSize != 12000 {
		t.Fatalf("chunk size = %d, want 12000", cfg.ChunkSize)
	}
	if cfg.HourlyQuota != 3 {
		t.Fatalf("hourly quota = %d, want 3", cfg.HourlyQuota)
	}
}

func TestUpdateGeneration_RejectsOutOfRange(t *testing.T) {
	conn := openTestDB(t)
	svc := settings.NewService(conn)

	cases := map[string]json.RawMessage{
		settings.ChunkSizeKey:   json.RawMessage("10"),
		settings.TemperatureKey: json.RawMessage("9.5"),
		settings.HourlyQuotaKey: json.RawMessage("0"),
		"UNKNOWN_KEY":           json.RawMessage("1"),
	}
	for key, raw := range cases {
		errUpdate := svc.UpdateGeneration(context.Background(), map[string]json.RawMessage{key: raw})
		if errUpdate == nil {
			t.Fatalf("expected error for %s=%s", key, raw)
		}
	}
}

func TestGeneration_ClampsStoredValues(t *testing.T) {
	conn := openTestDB(t)
	svc := settings.NewService(conn)

	// Write a raw out-of-range row directly; reads clamp instead of failing.
	if errExec := conn.Exec(
		"UPDATE settings SET value = ? WHERE key = ?", "999999999", settings.ChunkSizeKey,
	).Error; errExec != nil {
		t.Fatalf("seed setting: %v", errExec)
	}

	cfg := svc.Generation(context.Background())
	if cfg.ChunkSize != settings.MaxChunkSize {
		t.Fatalf("chunk size = %d, want clamp to %d", cfg.ChunkSize, settings.MaxChunkSize)
	}
}

func TestGeneration_OverlapNeverReachesChunkSize(t *testing.T) {
	conn := openTestDB(t)
	svc := settings.NewService(conn)

	updates := map[string]json.RawMessage{
		settings.ChunkSizeKey:    json.RawMessage("1000"),
		settings.ChunkOverlapKey: json.RawMessage("5000"),
	}
	if errUpdate := svc.UpdateGeneration(context.Background(), updates); errUpdate != nil {
		t.Fatalf("UpdateGeneration: %v", errUpdate)
	}

	cfg := svc.Generation(context.Background())
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		t.Fatalf("overlap %d not reduced below chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
}
