package keys

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/ratelimit"
	"github.com/unicore-lms/aicore/internal/secrets"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PoolManager serves credentials from the database pool, ordered by priority
// and age, skipping anything disabled, cooling down, or over its per-minute
// limit.
type PoolManager struct {
	db      *gorm.DB
	cipher  *secrets.Cipher
	limiter *ratelimit.Manager
	nowFn   func() time.Time

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewPoolManager constructs a PoolManager over the given dependencies.
func NewPoolManager(conn *gorm.DB, cipher *secrets.Cipher, limiter *ratelimit.Manager) *PoolManager {
	return &PoolManager{
		db:      conn,
		cipher:  cipher,
		limiter: limiter,
		nowFn:   time.Now,
		locks:   make(map[uint64]*sync.Mutex),
	}
}

// Select walks the pool in priority order and leases the first credential
// that is healthy and under its per-minute limit.
func (m *PoolManager) Select(ctx context.Context) (Lease, error) {
	if m == nil || m.db == nil {
		return Lease{}, ErrNoCredentialAvailable
	}
	now := m.nowFn().UTC()

	var rows []models.Credential
	if errFind := m.db.WithContext(ctx).
		Where("disabled = ?", false).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return Lease{}, fmt.Errorf("keys: load pool: %w", errFind)
	}

	for i := range rows {
		row := &rows[i]
		if !row.Available(now) {
			continue
		}
		result, errAllow := m.limiter.Allow(ctx, ratelimit.KeyForCredential(row.ID), row.RPMLimit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("keys: rate limit check failed")
			continue
		}
		if !result.Allowed {
			continue
		}
		secret, errDecrypt := m.cipher.Decrypt(row.EncryptedSecret)
		if errDecrypt != nil {
			log.WithError(errDecrypt).WithField("credential_id", row.ID).
				Warn("keys: undecryptable credential skipped")
			continue
		}
		return Lease{CredentialID: row.ID, Label: row.Label, Secret: secret}, nil
	}
	return Lease{}, ErrNoCredentialAvailable
}

// ReportSuccess persists a successful call: resets the error streak and
// restores the credential to active.
func (m *PoolManager) ReportSuccess(ctx context.Context, lease Lease, latency time.Duration) {
	if m == nil || m.db == nil || lease.CredentialID == 0 {
		return
	}
	lock := m.lockFor(lease.CredentialID)
	lock.Lock()
	defer lock.Unlock()

	now := m.nowFn().UTC()
	var row models.Credential
	if errFind := m.db.WithContext(ctx).First(&row, lease.CredentialID).Error; errFind != nil {
		log.WithError(errFind).WithField("credential_id", lease.CredentialID).
			Warn("keys: record success failed")
		return
	}
	row.MarkSuccess(now, int(latency.Milliseconds()))
	if errSave := m.db.WithContext(ctx).Save(&row).Error; errSave != nil {
		log.WithError(errSave).WithField("credential_id", lease.CredentialID).
			Warn("keys: record success failed")
	}
}

// ReportFailure persists a failed call. Rate-limited failures start a
// cooldown; a streak of failures disables the credential.
func (m *PoolManager) ReportFailure(ctx context.Context, lease Lease, message string, rateLimited bool) {
	if m == nil || m.db == nil || lease.CredentialID == 0 {
		return
	}
	lock := m.lockFor(lease.CredentialID)
	lock.Lock()
	defer lock.Unlock()

	now := m.nowFn().UTC()
	var row models.Credential
	if errFind := m.db.WithContext(ctx).First(&row, lease.CredentialID).Error; errFind != nil {
		log.WithError(errFind).WithField("credential_id", lease.CredentialID).
			Warn("keys: record failure failed")
		return
	}
	row.MarkFailure(now, message, rateLimited)
	if row.Disabled {
		log.WithField("credential_id", row.ID).WithField("label", row.Label).
			Warn("keys: credential disabled after repeated failures")
	}
	if errSave := m.db.WithContext(ctx).Save(&row).Error; errSave != nil {
		log.WithError(errSave).WithField("credential_id", lease.CredentialID).
			Warn("keys: record failure failed")
	}
}

// HealthStatus reports the state of every credential in the pool.
func (m *PoolManager) HealthStatus(ctx context.Context) ([]Health, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("keys: nil pool manager")
	}
	var rows []models.Credential
	if errFind := m.db.WithContext(ctx).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("keys: load pool: %w", errFind)
	}
	out := make([]Health, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		out = append(out, Health{
			CredentialID:  row.ID,
			Label:         row.Label,
			Provider:      row.Provider,
			Priority:      row.Priority,
			Status:        row.Status,
			Disabled:      row.Disabled,
			ErrorCount:    row.ErrorCount,
			TotalRequests: row.TotalRequests,
			LastError:     row.LastError,
			LastErrorAt:   row.LastErrorAt,
			LastSuccessAt: row.LastSuccessAt,
			LastLatencyMs: row.LastLatencyMs,
			RPMLimit:      row.RPMLimit,
			CooldownUntil: row.CooldownUntil,
			SecretHint:    strings.TrimSpace(row.SecretHint),
		})
	}
	return out, nil
}

// lockFor serializes health updates per credential.
func (m *PoolManager) lockFor(credentialID uint64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock := m.locks[credentialID]
	if lock == nil {
		lock = &sync.Mutex{}
		m.locks[credentialID] = lock
	}
	return lock
}
