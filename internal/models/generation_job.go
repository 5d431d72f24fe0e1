package models

import (
	"time"

	"gorm.io/datatypes"
)

// Generation job kinds.
const (
	// JobKindSummary produces a summary artifact.
	JobKindSummary = "summary"
	// JobKindQuestions produces a question bank artifact.
	JobKindQuestions = "questions"
	// JobKindMixed produces both.
	JobKindMixed = "mixed"
)

// Generation job statuses.
const (
	// JobStatusPending marks a job waiting to run.
	JobStatusPending = "pending"
	// JobStatusProcessing marks a job in flight.
	JobStatusProcessing = "processing"
	// JobStatusCompleted marks a job finished successfully.
	JobStatusCompleted = "completed"
	// JobStatusFailed marks a job that did not produce an artifact.
	JobStatusFailed = "failed"
)

// GenerationJob tracks one requested unit of generation work.
// A job transitions pending -> processing -> completed|failed exactly once.
type GenerationJob struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Reference string `gorm:"type:varchar(36);not null;uniqueIndex"` // Public UUID reference.

	Actor      string `gorm:"type:varchar(128);not null;index"` // Requesting actor identifier.
	DocumentID uint64 `gorm:"not null;index"`                   // Source document identifier.
	Kind       string `gorm:"type:varchar(20);not null"`        // summary, questions or mixed.

	MatrixConfig datatypes.JSON `gorm:"type:jsonb"` // Question matrix for question jobs.
	Instructions string         `gorm:"type:text"`  // Free-form caller instructions.

	Status       string `gorm:"type:varchar(20);not null;default:pending;index"` // Job status.
	ArtifactPath string `gorm:"type:varchar(500)"`                               // Relative artifact path.
	ErrorDetail  string `gorm:"type:text"`                                       // Failure detail, if any.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	CompletedAt *time.Time `gorm:""`                        // Terminal transition timestamp.
}
