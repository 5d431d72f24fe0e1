package settings

// DB config keys and defaults for generation settings.
const (
	// ActiveModelKey is the DB config key for the upstream model name.
	ActiveModelKey = "ACTIVE_MODEL"
	// ChunkSizeKey controls the maximum characters per document chunk.
	ChunkSizeKey = "CHUNK_SIZE"
	// ChunkOverlapKey controls the characters carried between adjacent chunks.
	ChunkOverlapKey = "CHUNK_OVERLAP"
	// MaxOutputTokensKey controls the upstream completion token ceiling.
	MaxOutputTokensKey = "MAX_OUTPUT_TOKENS"
	// TemperatureKey controls the upstream sampling temperature.
	TemperatureKey = "TEMPERATURE"
	// HourlyQuotaKey controls the per-actor generation quota per hour.
	HourlyQuotaKey = "HOURLY_QUOTA"
	// ServiceEnabledKey toggles the whole generation service.
	ServiceEnabledKey = "SERVICE_ENABLED"
	// MaintenanceMessageKey holds the message returned while disabled.
	MaintenanceMessageKey = "MAINTENANCE_MESSAGE"
	// RateLimitRedisEnabledKey toggles Redis-backed request counting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for request counting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for request counting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for request counting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for request counting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"

	// DefaultActiveModel is the fallback upstream model name.
	DefaultActiveModel = "gpt-4o-mini"
	// DefaultChunkSize is the fallback chunk size in characters.
	DefaultChunkSize = 30000
	// DefaultChunkOverlap is the fallback chunk overlap in characters.
	DefaultChunkOverlap = 500
	// DefaultMaxOutputTokens is the fallback completion token ceiling.
	DefaultMaxOutputTokens = 8192
	// DefaultTemperature is the fallback sampling temperature.
	DefaultTemperature = 0.3
	// DefaultHourlyQuota is the fallback per-actor hourly quota.
	DefaultHourlyQuota = 10
	// DefaultServiceEnabled enables generation unless switched off.
	DefaultServiceEnabled = true
	// DefaultMaintenanceMessage is returned while the service is disabled.
	DefaultMaintenanceMessage = "AI generation is temporarily unavailable."
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "aicore:rl"
)

// Clamp bounds for stored generation settings.
const (
	// MinChunkSize is the smallest accepted chunk size.
	MinChunkSize = 1000
	// MaxChunkSize is the largest accepted chunk size.
	MaxChunkSize = 100000
	// MinChunkOverlap is the smallest accepted chunk overlap.
	MinChunkOverlap = 0
	// MaxChunkOverlap is the largest accepted chunk overlap.
	MaxChunkOverlap = 5000
	// MinMaxOutputTokens is the smallest accepted token ceiling.
	MinMaxOutputTokens = 100
	// MaxMaxOutputTokens is the largest accepted token ceiling.
	MaxMaxOutputTokens = 65536
	// MinTemperature is the smallest accepted temperature.
	MinTemperature = 0.0
	// MaxTemperature is the largest accepted temperature.
	MaxTemperature = 2.0
	// MinHourlyQuota is the smallest accepted hourly quota.
	MinHourlyQuota = 1
	// MaxHourlyQuota is the largest accepted hourly quota.
	MaxHourlyQuota = 1000
)
