package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CacheTTL bounds how long a settings snapshot is served without a DB read.
const CacheTTL = 5 * time.Minute

// GenerationConfig is the resolved snapshot of all generation settings.
type GenerationConfig struct {
	ActiveModel        string  `json:"active_model"`
	ChunkSize          int     `json:"chunk_size"`
	ChunkOverlap       int     `json:"chunk_overlap"`
	MaxOutputTokens    int     `json:"max_output_tokens"`
	Temperature        float64 `json:"temperature"`
	HourlyQuota        int     `json:"hourly_quota"`
	ServiceEnabled     bool    `json:"service_enabled"`
	MaintenanceMessage string  `json:"maintenance_message"`
}

// DefaultGenerationConfig returns the built-in fallback configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		ActiveModel:        DefaultActiveModel,
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		MaxOutputTokens:    DefaultMaxOutputTokens,
		Temperature:        DefaultTemperature,
		HourlyQuota:        DefaultHourlyQuota,
		ServiceEnabled:     DefaultServiceEnabled,
		MaintenanceMessage: DefaultMaintenanceMessage,
	}
}

// Service reads and updates settings rows with a short-lived cache.
type Service struct {
	db    *gorm.DB
	nowFn func() time.Time

	mu        sync.RWMutex
	cached    GenerationConfig
	cachedAt  time.Time
	hasCached bool
}

// NewService constructs a settings service over the given connection.
func NewService(conn *gorm.DB) *Service {
	return &Service{db: conn, nowFn: time.Now}
}

// Generation returns the current generation settings snapshot. Rows that are
// missing or malformed fall back to built-in defaults. The snapshot is cached
// for CacheTTL; a DB failure serves the last cached snapshot when one exists.
func (s *Service) Generation(ctx context.Context) GenerationConfig {
	if s == nil || s.db == nil {
		return DefaultGenerationConfig()
	}
	now := s.nowFn().UTC()

	s.mu.RLock()
	if s.hasCached && now.Sub(s.cachedAt) < CacheTTL {
		cfg := s.cached
		s.mu.RUnlock()
		return cfg
	}
	s.mu.RUnlock()

	cfg, errLoad := s.load(ctx)
	if errLoad != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.hasCached {
			return s.cached
		}
		return DefaultGenerationConfig()
	}

	s.mu.Lock()
	s.cached = cfg
	s.cachedAt = now
	s.hasCached = true
	s.mu.Unlock()
	return cfg
}

// Invalidate drops the cached snapshot so the next read hits the database.
func (s *Service) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.hasCached = false
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context) (GenerationConfig, error) {
	keys := []string{
		ActiveModelKey,
		ChunkSizeKey,
		ChunkOverlapKey,
		MaxOutputTokensKey,
		TemperatureKey,
		HourlyQuotaKey,
		ServiceEnabledKey,
		MaintenanceMessageKey,
	}
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).
		Where("key IN ?", keys).
		Find(&rows).Error; errFind != nil {
		return GenerationConfig{}, fmt.Errorf("settings: load: %w", errFind)
	}

	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
	}

	cfg := DefaultGenerationConfig()
	if raw, ok := values[ActiveModelKey]; ok {
		if model, okParse := parseString(raw); okParse && model != "" {
			cfg.ActiveModel = model
		}
	}
	if raw, ok := values[ChunkSizeKey]; ok {
		if size, okParse := parseNonNegativeInt(raw); okParse {
			cfg.ChunkSize = clampInt(size, MinChunkSize, MaxChunkSize)
		}
	}
	if raw, ok := values[ChunkOverlapKey]; ok {
		if overlap, okParse := parseNonNegativeInt(raw); okParse {
			cfg.ChunkOverlap = clampInt(overlap, MinChunkOverlap, MaxChunkOverlap)
		}
	}
	if raw, ok := values[MaxOutputTokensKey]; ok {
		if tokens, okParse := parseNonNegativeInt(raw); okParse {
			cfg.MaxOutputTokens = clampInt(tokens, MinMaxOutputTokens, MaxMaxOutputTokens)
		}
	}
	if raw, ok := values[TemperatureKey]; ok {
		if temp, okParse := parseFloat(raw); okParse {
			cfg.Temperature = clampFloat(temp, MinTemperature, MaxTemperature)
		}
	}
	if raw, ok := values[HourlyQuotaKey]; ok {
		if quota, okParse := parseNonNegativeInt(raw); okParse {
			cfg.HourlyQuota = clampInt(quota, MinHourlyQuota, MaxHourlyQuota)
		}
	}
	if raw, ok := values[ServiceEnabledKey]; ok {
		if enabled, okParse := parseBool(raw); okParse {
			cfg.ServiceEnabled = enabled
		}
	}
	if raw, ok := values[MaintenanceMessageKey]; ok {
		if message, okParse := parseString(raw); okParse && message != "" {
			cfg.MaintenanceMessage = message
		}
	}

	// Overlap can never reach the chunk size or chunking would not advance.
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 2
	}
	return cfg, nil
}

// RedisConfig captures Redis settings for request counting.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis loads the Redis request-counting settings, uncached. Missing or
// malformed rows leave the memory-only defaults in place.
func (s *Service) Redis(ctx context.Context) RedisConfig {
	cfg := RedisConfig{Prefix: DefaultRateLimitRedisPrefix}
	if s == nil || s.db == nil {
		return cfg
	}
	keys := []string{
		RateLimitRedisEnabledKey,
		RateLimitRedisAddrKey,
		RateLimitRedisPasswordKey,
		RateLimitRedisDBKey,
		RateLimitRedisPrefixKey,
	}
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).
		Where("key IN ?", keys).
		Find(&rows).Error; errFind != nil {
		return cfg
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
	}
	if raw, ok := values[RateLimitRedisEnabledKey]; ok {
		if enabled, okParse := parseBool(raw); okParse {
			cfg.Enabled = enabled
		}
	}
	if raw, ok := values[RateLimitRedisAddrKey]; ok {
		if addr, okParse := parseString(raw); okParse {
			cfg.Addr = addr
		}
	}
	if raw, ok := values[RateLimitRedisPasswordKey]; ok {
		if password, okParse := parseString(raw); okParse {
			cfg.Password = password
		}
	}
	if raw, ok := values[RateLimitRedisDBKey]; ok {
		if dbIndex, okParse := parseNonNegativeInt(raw); okParse {
			cfg.DB = dbIndex
		}
	}
	if raw, ok := values[RateLimitRedisPrefixKey]; ok {
		if prefix, okParse := parseString(raw); okParse && prefix != "" {
			cfg.Prefix = prefix
		}
	}
	if cfg.Addr == "" {
		cfg.Enabled = false
	}
	return cfg
}

// UpdateGeneration validates and persists the provided settings values, then
// invalidates the cache. Keys outside the generation set are rejected.
func (s *Service) UpdateGeneration(ctx context.Context, updates map[string]json.RawMessage) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("settings: nil service")
	}
	if len(updates) == 0 {
		return nil
	}
	for key, raw := range updates {
		if errValidate := validateGenerationValue(key, raw); errValidate != nil {
			return errValidate
		}
	}

	now := s.nowFn().UTC()
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, raw := range updates {
			value := datatypes.JSON(bytes.TrimSpace(raw))
			var existing models.Setting
			errFind := tx.Where("key = ?", key).First(&existing).Error
			if errFind == nil {
				if errUpdate := tx.Model(&existing).Updates(map[string]any{
					"value":      value,
					"updated_at": now,
				}).Error; errUpdate != nil {
					return fmt.Errorf("settings: update %s: %w", key, errUpdate)
				}
				continue
			}
			if !errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("settings: query %s: %w", key, errFind)
			}
			row := models.Setting{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return fmt.Errorf("settings: create %s: %w", key, errCreate)
			}
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.Invalidate()
	return nil
}

// validateGenerationValue checks a single settings update against its bounds.
func validateGenerationValue(key string, raw json.RawMessage) error {
	switch key {
	case ActiveModelKey:
		value, ok := parseString(raw)
		if !ok || value == "" {
			return fmt.Errorf("settings: %s must be a non-empty string", key)
		}
	case MaintenanceMessageKey:
		if _, ok := parseString(raw); !ok {
			return fmt.Errorf("settings: %s must be a string", key)
		}
	case ChunkSizeKey:
		return validateIntRange(key, raw, MinChunkSize, MaxChunkSize)
	case ChunkOverlapKey:
		return validateIntRange(key, raw, MinChunkOverlap, MaxChunkOverlap)
	case MaxOutputTokensKey:
		return validateIntRange(key, raw, MinMaxOutputTokens, MaxMaxOutputTokens)
	case HourlyQuotaKey:
		return validateIntRange(key, raw, MinHourlyQuota, MaxHourlyQuota)
	case TemperatureKey:
		value, ok := parseFloat(raw)
		if !ok || value < MinTemperature || value > MaxTemperature {
			return fmt.Errorf("settings: %s must be between %g and %g", key, MinTemperature, MaxTemperature)
		}
	case ServiceEnabledKey:
		if _, ok := parseBool(raw); !ok {
			return fmt.Errorf("settings: %s must be a boolean", key)
		}
	default:
		return fmt.Errorf("settings: unknown key %s", key)
	}
	return nil
}

func validateIntRange(key string, raw json.RawMessage, min, max int) error {
	value, ok := parseNonNegativeInt(raw)
	if !ok || value < min || value > max {
		return fmt.Errorf("settings: %s must be between %d and %d", key, min, max)
	}
	return nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func parseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var parsedBool bool
	if errUnmarshalBool := json.Unmarshal(raw, &parsedBool); errUnmarshalBool == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		default:
			return false, false
		}
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return false, false
		}
		if parsedFloat == 1 {
			return true, true
		}
		if parsedFloat == 0 {
			return false, true
		}
	}
	return false, false
}

func parseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		return strings.TrimSpace(parsedString), true
	}
	return "", false
}

func parseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}

func parseFloat(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		return parsedFloat, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.ParseFloat(strings.TrimSpace(parsedString), 64)
		if errParse != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
