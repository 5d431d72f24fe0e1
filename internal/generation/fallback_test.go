package generation

import (
	"strings"
	"testing"
)

func TestLocalSummary_ShortTextUnchanged(t *testing.T) {
	text := "First sentence. Second sentence."
	if got := localSummary(text, 1000); got != text {
		t.Fatalf("got %q, want unchanged input", got)
	}
}

func TestLocalSummary_TruncatesAtSentences(t *testing.T) {
	text := strings.Repeat("This is a sentence about the topic. ", 100)
	got := localSummary(text, 200)
	if got == "" {
		t.Fatal("empty summary")
	}
	if len([]rune(got)) > 250 {
		t.Fatalf("summary too long: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(strings.TrimSpace(got), ".") {
		t.Fatalf("summary does not end on a sentence boundary: %q", got)
	}
}

func TestLocalSummary_AlwaysProducesSomething(t *testing.T) {
	// No sentence terminators at all.
	text := strings.Repeat("word ", 500)
	if got := localSummary(text, 100); got == "" {
		t.Fatal("expected non-empty summary for unterminated text")
	}
	if got := localSummary("   ", 100); got != "" {
		t.Fatalf("blank input produced %q", got)
	}
}
