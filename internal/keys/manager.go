package keys

import (
	"context"
	"errors"
	"time"
)

// ErrNoCredentialAvailable indicates every credential is disabled, cooling
// down, or over its per-minute limit.
var ErrNoCredentialAvailable = errors.New("keys: no credential available")

// Lease is a credential handed out for one upstream request. CredentialID is
// zero for the environment-backed credential.
type Lease struct {
	CredentialID uint64
	Label        string
	Secret       string
}

// Health describes one credential's current state for operators. Secrets are
// never included.
type Health struct {
	CredentialID  uint64     `json:"credential_id"`
	Label         string     `json:"label"`
	Provider      string     `json:"provider"`
	Priority      int        `json:"priority"`
	Status        string     `json:"status"`
	Disabled      bool       `json:"disabled"`
	ErrorCount    int        `json:"error_count"`
	TotalRequests uint64     `json:"total_requests"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastLatencyMs int        `json:"last_latency_ms"`
	RPMLimit      int        `json:"rpm_limit"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	SecretHint    string     `json:"secret_hint"`
}

// Manager selects credentials for upstream requests and records outcomes.
type Manager interface {
	// Select returns the best available credential or ErrNoCredentialAvailable.
	Select(ctx context.Context) (Lease, error)
	// ReportSuccess records a successful upstream call made with the lease.
	ReportSuccess(ctx context.Context, lease Lease, latency time.Duration)
	// ReportFailure records a failed upstream call. Rate-limited failures put
	// the credential into cooldown.
	ReportFailure(ctx context.Context, lease Lease, message string, rateLimited bool)
	// HealthStatus reports the state of every known credential.
	HealthStatus(ctx context.Context) ([]Health, error)
}
