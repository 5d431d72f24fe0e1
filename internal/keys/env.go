package keys

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/ratelimit"
	"github.com/unicore-lms/aicore/internal/secrets"
	log "github.com/sirupsen/logrus"
)

// envLabel names the single environment-backed credential in health output.
const envLabel = "env"

// EnvManager serves a single credential from process configuration. Health is
// tracked in memory only: a restart resets the streak and cooldown.
type EnvManager struct {
	secret   string
	rpmLimit int
	limiter  *ratelimit.Manager
	nowFn    func() time.Time

	mu            sync.Mutex
	errorCount    int
	totalRequests uint64
	lastError     string
	lastErrorAt   *time.Time
	lastSuccessAt *time.Time
	lastLatencyMs int
	cooldownUntil *time.Time
	disabled      bool
}

// NewEnvManager constructs an EnvManager for the given secret.
func NewEnvManager(secret string, rpmLimit int, limiter *ratelimit.Manager) *EnvManager {
	if rpmLimit <= 0 {
		rpmLimit = models.DefaultRPMLimit
	}
	return &EnvManager{
		secret:   strings.TrimSpace(secret),
		rpmLimit: rpmLimit,
		limiter:  limiter,
		nowFn:    time.Now,
	}
}

// Select leases the environment credential when it is not cooling down,
// disabled, or over its per-minute limit.
func (m *EnvManager) Select(ctx context.Context) (Lease, error) {
	if m == nil || m.secret == "" {
		return Lease{}, ErrNoCredentialAvailable
	}
	now := m.nowFn().UTC()

	m.mu.Lock()
	blocked := m.disabled || (m.cooldownUntil != nil && now.Before(*m.cooldownUntil))
	m.mu.Unlock()
	if blocked {
		return Lease{}, ErrNoCredentialAvailable
	}

	result, errAllow := m.limiter.Allow(ctx, ratelimit.KeyForEnv, m.rpmLimit)
	if errAllow != nil {
		log.WithError(errAllow).Warn("keys: rate limit check failed")
		return Lease{}, ErrNoCredentialAvailable
	}
	if !result.Allowed {
		return Lease{}, ErrNoCredentialAvailable
	}
	return Lease{Label: envLabel, Secret: m.secret}, nil
}

// ReportSuccess resets the in-memory error streak.
func (m *EnvManager) ReportSuccess(_ context.Context, _ Lease, latency time.Duration) {
	if m == nil {
		return
	}
	now := m.nowFn().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount = 0
	m.totalRequests++
	m.lastSuccessAt = &now
	m.lastLatencyMs = int(latency.Milliseconds())
	m.cooldownUntil = nil
	m.disabled = false
}

// ReportFailure advances the in-memory error streak and applies cooldown and
// disable rules matching the pool credential behavior.
func (m *EnvManager) ReportFailure(_ context.Context, _ Lease, message string, rateLimited bool) {
	if m == nil {
		return
	}
	now := m.nowFn().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
	m.totalRequests++
	m.lastError = strings.TrimSpace(message)
	m.lastErrorAt = &now
	if rateLimited {
		until := now.Add(models.CredentialCooldown)
		m.cooldownUntil = &until
	}
	if m.errorCount >= models.CredentialErrorThreshold {
		m.disabled = true
		log.WithField("label", envLabel).Warn("keys: credential disabled after repeated failures")
	}
}

// HealthStatus reports the single environment credential.
func (m *EnvManager) HealthStatus(_ context.Context) ([]Health, error) {
	if m == nil {
		return nil, ErrNoCredentialAvailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	status := models.CredentialStatusActive
	switch {
	case m.disabled:
		status = models.CredentialStatusError
	case m.cooldownUntil != nil:
		status = models.CredentialStatusCooldown
	case m.errorCount > 0:
		status = models.CredentialStatusError
	}
	return []Health{{
		Label:         envLabel,
		Status:        status,
		Disabled:      m.disabled,
		ErrorCount:    m.errorCount,
		TotalRequests: m.totalRequests,
		LastError:     m.lastError,
		LastErrorAt:   m.lastErrorAt,
		LastSuccessAt: m.lastSuccessAt,
		LastLatencyMs: m.lastLatencyMs,
		RPMLimit:      m.rpmLimit,
		CooldownUntil: m.cooldownUntil,
		SecretHint:    secrets.Hint(m.secret),
	}}, nil
}
