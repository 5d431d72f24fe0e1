package models

import (
	"time"
)

// Credential status values.
const (
	// CredentialStatusActive marks a credential as usable.
	CredentialStatusActive = "active"
	// CredentialStatusCooldown marks a credential resting after a rate limit.
	CredentialStatusCooldown = "cooldown"
	// CredentialStatusDisabled marks a credential manually switched off.
	CredentialStatusDisabled = "disabled"
	// CredentialStatusError marks a credential disabled by an error streak.
	CredentialStatusError = "error"
)

// CredentialErrorThreshold is the consecutive-error count that disables a credential.
const CredentialErrorThreshold = 5

// CredentialCooldown is how long a rate-limited credential rests.
const CredentialCooldown = 60 * time.Second

// DefaultRPMLimit is the per-minute request ceiling applied to new credentials.
const DefaultRPMLimit = 15

// Credential stores one upstream API key together with its tracked health.
type Credential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Label    string `gorm:"type:text;not null"`                // Display name.
	Provider string `gorm:"type:varchar(64);not null;index"`   // Upstream provider identifier.
	Priority int    `gorm:"not null;default:0;index"`          // Selection priority (lower tried first).

	EncryptedSecret string `gorm:"type:text;not null"` // AES-GCM encrypted API key.
	SecretHint      string `gorm:"type:varchar(20)"`   // Last 4 characters of the raw key.

	Status   string `gorm:"type:varchar(20);not null;default:active;index"` // Health status.
	Disabled bool   `gorm:"not null;default:false"`                         // Manual disable flag.

	ErrorCount    int    `gorm:"not null;default:0"` // Consecutive error streak.
	TotalRequests uint64 `gorm:"not null;default:0"` // Lifetime request count.
	LastError     string `gorm:"type:text"`          // Last error message (truncated).

	LastErrorAt   *time.Time `gorm:""`                   // Last failure timestamp.
	LastSuccessAt *time.Time `gorm:""`                   // Last success timestamp.
	LastLatencyMs int        `gorm:"not null;default:0"` // Last observed latency in ms.

	RPMLimit      int        `gorm:"not null;default:15"` // Requests-per-minute ceiling.
	CooldownUntil *time.Time `gorm:"index"`               // Rest period expiry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Available reports whether the credential may be selected at the given time.
func (c *Credential) Available(now time.Time) bool {
	if c == nil || c.Disabled {
		return false
	}
	switch c.Status {
	case CredentialStatusDisabled, CredentialStatusError:
		return false
	}
	if c.CooldownUntil != nil && now.Before(*c.CooldownUntil) {
		return false
	}
	return true
}

// MarkSuccess records a successful call and clears the error streak.
func (c *Credential) MarkSuccess(now time.Time, latencyMs int) {
	c.LastSuccessAt = &now
	c.LastLatencyMs = latencyMs
	c.TotalRequests++
	c.ErrorCount = 0
	c.Status = CredentialStatusActive
	c.CooldownUntil = nil
}

// MarkFailure records a failed call and applies cooldown or disablement.
func (c *Credential) MarkFailure(now time.Time, message string, isRateLimit bool) {
	if runes := []rune(message); len(runes) > 500 {
		message = string(runes[:500])
	}
	c.LastError = message
	c.LastErrorAt = &now
	c.ErrorCount++
	c.TotalRequests++

	switch {
	case isRateLimit:
		until := now.Add(CredentialCooldown)
		c.CooldownUntil = &until
		c.Status = CredentialStatusCooldown
	case c.ErrorCount >= CredentialErrorThreshold:
		c.Status = CredentialStatusError
		c.Disabled = true
	default:
		c.Status = CredentialStatusActive
	}
}
