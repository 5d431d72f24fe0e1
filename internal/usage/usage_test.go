package usage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/unicore-lms/aicore/internal/db"
	"github.com/unicore-lms/aicore/internal/models"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewRecorder(conn)
}

func TestAllow_CountsNonCachedOnly(t *testing.T) {
	recorder := testRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Success: true})
	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Success: true, Cached: true})

	allowed, err := recorder.Allow(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !allowed {
		t.Fatalf("one non-cached request should leave room under quota 2")
	}

	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "questions", Success: true})
	allowed, err = recorder.Allow(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatalf("quota 2 should be exhausted by two non-cached requests")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	recorder := testRecorder(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	recorder.nowFn = func() time.Time { return base }
	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Success: true})

	recorder.nowFn = func() time.Time { return base.Add(QuotaWindow + time.Minute) }
	allowed, err := recorder.Allow(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !allowed {
		t.Fatalf("request outside the trailing hour should not count")
	}
}

func TestAllow_ActorsAreIndependent(t *testing.T) {
	recorder := testRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Success: true})

	allowed, err := recorder.Allow(ctx, "user-2", 1)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !allowed {
		t.Fatalf("user-2 should not share user-1's quota")
	}
}

func TestRemaining(t *testing.T) {
	recorder := testRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Success: true})
	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "chat", Success: false, ErrorDetail: "upstream down"})

	remaining, err := recorder.Remaining(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining = %d, want 3", remaining)
	}
}

func TestSummarize(t *testing.T) {
	recorder := testRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", TokensUsed: 100, Success: true})
	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "summary", Cached: true, Success: true})
	recorder.Record(ctx, Entry{Actor: "user-1", RequestKind: "chat", Success: false, ErrorDetail: "boom"})

	summary, err := recorder.Summarize(ctx, "user-1", 24)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Requests != 3 {
		t.Fatalf("requests = %d, want 3", summary.Requests)
	}
	if summary.CacheHits != 1 {
		t.Fatalf("cache hits = %d, want 1", summary.CacheHits)
	}
	if summary.Failures != 1 {
		t.Fatalf("failures = %d, want 1", summary.Failures)
	}
	if summary.TokensUsed != 100 {
		t.Fatalf("tokens used = %d, want 100", summary.TokensUsed)
	}
}

func TestRecord_TruncatesDetailOnRuneBoundary(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "aicore-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	recorder := NewRecorder(conn)

	detail := strings.Repeat("خطأ في المعالجة ", 80)
	recorder.Record(context.Background(), Entry{Actor: "user-1", RequestKind: "summary", ErrorDetail: detail})

	var row models.UsageRecord
	if errFind := conn.First(&row).Error; errFind != nil {
		t.Fatalf("find record: %v", errFind)
	}
	if got := len([]rune(row.ErrorDetail)); got > 500 {
		t.Fatalf("stored detail has %d runes, want at most 500", got)
	}
	if !utf8.ValidString(row.ErrorDetail) {
		t.Fatalf("stored detail is not valid UTF-8")
	}
}
