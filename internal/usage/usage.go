package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuotaWindow is the trailing window the hourly quota is counted over.
const QuotaWindow = time.Hour

// Recorder persists usage rows and answers quota questions over them.
type Recorder struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(conn *gorm.DB) *Recorder {
	return &Recorder{db: conn, nowFn: time.Now}
}

// Entry describes one generation request to log.
type Entry struct {
	Actor        string
	RequestKind  string
	TokensUsed   int
	Cached       bool
	Success      bool
	ErrorDetail  string
	CredentialID *uint64
}

// Record writes a usage row. Logging failures are reported but never block
// the request that produced them.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.db == nil {
		return
	}
	detail := strings.TrimSpace(entry.ErrorDetail)
	if runes := []rune(detail); len(runes) > 500 {
		detail = string(runes[:500])
	}
	row := models.UsageRecord{
		Actor:        strings.TrimSpace(entry.Actor),
		RequestKind:  entry.RequestKind,
		TokensUsed:   entry.TokensUsed,
		Cached:       entry.Cached,
		Success:      entry.Success,
		ErrorDetail:  detail,
		CredentialID: entry.CredentialID,
		RequestedAt:  r.nowFn().UTC(),
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("usage: failed to persist record")
	}
}

// Allow reports whether the actor is under the hourly quota. Cache hits are
// not counted against the quota.
func (r *Recorder) Allow(ctx context.Context, actor string, quota int) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("usage: nil recorder")
	}
	if quota <= 0 {
		return false, nil
	}
	count, errCount := r.countWindow(ctx, actor)
	if errCount != nil {
		return false, errCount
	}
	return count < int64(quota), nil
}

// Remaining reports how many non-cached requests the actor has left in the
// current window.
func (r *Recorder) Remaining(ctx context.Context, actor string, quota int) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("usage: nil recorder")
	}
	if quota <= 0 {
		return 0, nil
	}
	count, errCount := r.countWindow(ctx, actor)
	if errCount != nil {
		return 0, errCount
	}
	remaining := quota - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (r *Recorder) countWindow(ctx context.Context, actor string) (int64, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return 0, fmt.Errorf("usage: empty actor")
	}
	since := r.nowFn().UTC().Add(-QuotaWindow)
	var count int64
	if errCount := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("actor = ? AND cached = ? AND requested_at >= ?", actor, false, since).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("usage: count window: %w", errCount)
	}
	return count, nil
}

// ActorSummary aggregates an actor's recent usage for reporting.
type ActorSummary struct {
	Actor       string `json:"actor"`
	Requests    int64  `json:"requests"`
	CacheHits   int64  `json:"cache_hits"`
	Failures    int64  `json:"failures"`
	TokensUsed  int64  `json:"tokens_used"`
	WindowHours int    `json:"window_hours"`
}

// Summarize aggregates usage for one actor over the trailing window of
// whole hours.
func (r *Recorder) Summarize(ctx context.Context, actor string, windowHours int) (ActorSummary, error) {
	if r == nil || r.db == nil {
		return ActorSummary{}, fmt.Errorf("usage: nil recorder")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ActorSummary{}, fmt.Errorf("usage: empty actor")
	}
	if windowHours <= 0 {
		windowHours = 24
	}
	since := r.nowFn().UTC().Add(-time.Duration(windowHours) * time.Hour)

	// row holds the aggregate query result.
	var row struct {
		Requests   int64
		CacheHits  int64
		Failures   int64
		TokensUsed int64
	}
	if errScan := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Select(
			"COUNT(*) AS requests",
			"COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0) AS cache_hits",
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures",
			"COALESCE(SUM(tokens_used), 0) AS tokens_used",
		).
		Where("actor = ? AND requested_at >= ?", actor, since).
		Scan(&row).Error; errScan != nil {
		return ActorSummary{}, fmt.Errorf("usage: summarize: %w", errScan)
	}
	return ActorSummary{
		Actor:       actor,
		Requests:    row.Requests,
		CacheHits:   row.CacheHits,
		Failures:    row.Failures,
		TokensUsed:  row.TokensUsed,
		WindowHours: windowHours,
	}, nil
}
