package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	internalsettings "github.com/unicore-lms/aicore/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrateModels(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Credential{},
		&models.UsageRecord{},
		&models.GenerationJob{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrateModels(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errSeed := ensureGenerationSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_credentials_selectable",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_credentials_selectable
				ON credentials (priority ASC, created_at ASC)
				WHERE disabled = false
			`,
		},
		{
			name: "idx_usage_records_actor_kind",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_usage_records_actor_kind
				ON usage_records (actor, request_kind, requested_at DESC)
			`,
		},
		{
			name: "idx_usage_records_credential_time",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_usage_records_credential_time
				ON usage_records (credential_id, requested_at DESC)
			`,
		},
		{
			name: "idx_generation_jobs_actor_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_generation_jobs_actor_created_at
				ON generation_jobs (actor, created_at DESC)
			`,
		},
		{
			name: "idx_generation_jobs_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_generation_jobs_status_created_at
				ON generation_jobs (status, created_at DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrateModels(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errSeed := ensureGenerationSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_credentials_selectable",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_credentials_selectable
				ON credentials (priority ASC, created_at ASC)
				WHERE disabled = false
			`,
		},
		{
			name: "idx_usage_records_actor_kind",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_usage_records_actor_kind
				ON usage_records (actor, request_kind, requested_at DESC)
			`,
		},
		{
			name: "idx_usage_records_credential_time",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_usage_records_credential_time
				ON usage_records (credential_id, requested_at DESC)
			`,
		},
		{
			name: "idx_generation_jobs_actor_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_generation_jobs_actor_created_at
				ON generation_jobs (actor, created_at DESC)
			`,
		},
		{
			name: "idx_generation_jobs_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_generation_jobs_status_created_at
				ON generation_jobs (status, created_at DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureGenerationSettings seeds the generation settings rows with defaults.
func ensureGenerationSettings(conn *gorm.DB) error {
	if errEnsure := ensureStringSetting(
		conn,
		internalsettings.ActiveModelKey,
		internalsettings.DefaultActiveModel,
	); errEnsure != nil {
		return errEnsure
	}
	intDefaults := []struct {
		key   string
		value int
	}{
		{internalsettings.ChunkSizeKey, internalsettings.DefaultChunkSize},
		{internalsettings.ChunkOverlapKey, internalsettings.DefaultChunkOverlap},
		{internalsettings.MaxOutputTokensKey, internalsettings.DefaultMaxOutputTokens},
		{internalsettings.HourlyQuotaKey, internalsettings.DefaultHourlyQuota},
	}
	for _, item := range intDefaults {
		if errEnsure := ensureIntSetting(conn, item.key, item.value); errEnsure != nil {
			return errEnsure
		}
	}
	if errEnsure := ensureFloatSetting(
		conn,
		internalsettings.TemperatureKey,
		internalsettings.DefaultTemperature,
	); errEnsure != nil {
		return errEnsure
	}
	return ensureBoolSetting(
		conn,
		internalsettings.ServiceEnabledKey,
		internalsettings.DefaultServiceEnabled,
	)
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	return ensureSetting(conn, key, value)
}

// ensureBoolSetting ensures a boolean setting exists and defaults when empty.
func ensureBoolSetting(conn *gorm.DB, key string, value bool) error {
	return ensureSetting(conn, key, value)
}

// ensureFloatSetting ensures a float setting exists and defaults when empty.
func ensureFloatSetting(conn *gorm.DB, key string, value float64) error {
	return ensureSetting(conn, key, value)
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key, value string) error {
	return ensureSetting(conn, key, value)
}

// ensureSetting ensures a setting row exists and backfills empty values.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := datatypes.JSON(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	now := time.Now().UTC()
	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
