package generation

import (
	"reflect"
	"testing"
)

func TestTopRelevant_OrdersByOverlap(t *testing.T) {
	chunks := []string{
		"weather forecast rain clouds",
		"photosynthesis converts light energy into chemical energy",
		"plants use light for photosynthesis and energy storage",
		"stock market movements today",
	}
	got := TopRelevant(chunks, "How does photosynthesis turn light into energy?")
	if len(got) != 3 {
		t.Fatalf("returned %d chunks, want 3", len(got))
	}
	if got[0] != chunks[1] && got[0] != chunks[2] {
		t.Fatalf("top chunk = %q", got[0])
	}
	for _, c := range got[:2] {
		if c == chunks[3] {
			t.Fatalf("irrelevant chunk ranked in top 2")
		}
	}
}

func TestTopRelevant_StableOnTies(t *testing.T) {
	chunks := []string{"alpha beta", "alpha gamma", "alpha delta", "alpha epsilon"}
	got := TopRelevant(chunks, "alpha")
	want := []string{"alpha beta", "alpha gamma", "alpha delta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTopRelevant_SingleChunkPassthrough(t *testing.T) {
	chunks := []string{"only one"}
	got := TopRelevant(chunks, "anything")
	if !reflect.DeepEqual(got, chunks) {
		t.Fatalf("got %v", got)
	}
	if got := TopRelevant(nil, "anything"); len(got) != 0 {
		t.Fatalf("nil chunks returned %v", got)
	}
}

func TestTopRelevant_CaseFolded(t *testing.T) {
	chunks := []string{"ENERGY TRANSFER basics", "unrelated text here", "more unrelated words"}
	got := TopRelevant(chunks, "energy transfer")
	if got[0] != chunks[0] {
		t.Fatalf("case-folded match not ranked first: %q", got[0])
	}
}
