package ratelimit

import (
	"context"
	"time"
)

// WindowSeconds is the fixed request counting window.
const WindowSeconds = 60

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

// BackendConfig captures Redis backend settings for request counting.
type BackendConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}
