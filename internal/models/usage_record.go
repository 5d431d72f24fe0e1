package models

import "time"

// Usage request kinds.
const (
	// RequestKindSummary identifies summary generation requests.
	RequestKindSummary = "summary"
	// RequestKindQuestions identifies question generation requests.
	RequestKindQuestions = "questions"
	// RequestKindChat identifies document Q&A requests.
	RequestKindChat = "chat"
)

// UsageRecord is one append-only log entry for a generation request.
// The hourly quota is computed directly over these rows.
type UsageRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Actor       string `gorm:"type:varchar(128);not null;index:idx_usage_actor_time"` // Requesting actor identifier.
	RequestKind string `gorm:"type:varchar(20);not null;index"`                       // summary, questions or chat.

	TokensUsed int  `gorm:"not null;default:0"`     // Token count reported upstream.
	Cached     bool `gorm:"not null;default:false"` // Served from the result cache.
	Success    bool `gorm:"not null;default:true"`  // Whether the request succeeded.

	ErrorDetail  string  `gorm:"type:text"` // Failure detail, if any.
	CredentialID *uint64 `gorm:"index"`     // Credential used for the call.

	RequestedAt time.Time `gorm:"not null;index:idx_usage_actor_time"` // Request timestamp.
}
