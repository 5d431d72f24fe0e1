package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split("", 100, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_FitsInOneChunk(t *testing.T) {
	text := "Short paragraph.\n\nAnother one."
	chunks, err := Split(text, 1000, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected the unchanged text back, got %q", chunks)
	}
}

func TestSplit_OverlapMustBeSmaller(t *testing.T) {
	if _, err := Split("text", 10, 10); !errors.Is(err, ErrOverlapTooLarge) {
		t.Fatalf("expected ErrOverlapTooLarge, got %v", err)
	}
}

func TestSplit_ParagraphBoundaries(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 10; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 20)+"end.")
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks, err := Split(text, 300, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if len([]rune(chunk)) > 300 {
			t.Fatalf("chunk %d exceeds size: %d", i, len([]rune(chunk)))
		}
	}
}

func TestSplit_ReconstructionWithOverlap(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, strings.Repeat("alpha beta gamma ", 10)+"done.")
	}
	text := strings.Join(paragraphs, "\n\n")

	for _, overlap := range []int{0, 25, 80} {
		chunks, err := Split(text, 400, overlap)
		if err != nil {
			t.Fatalf("Split overlap=%d: %v", overlap, err)
		}
		if got := Reconstruct(chunks, overlap); got != text {
			t.Fatalf("overlap=%d: reconstruction does not match source", overlap)
		}
	}
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, strings.Repeat("context ", 30)+"stop.")
	}
	text := strings.Join(paragraphs, "\n\n")

	overlap := 40
	chunks, err := Split(text, 500, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		tail := string(prev[len(prev)-overlap:])
		if !strings.HasPrefix(string(cur), tail) {
			t.Fatalf("chunk %d does not start with the previous chunk's tail", i)
		}
	}
}

func TestSplit_SentenceFallbackForLongParagraph(t *testing.T) {
	// One paragraph, many sentences, no double newlines.
	var sentences []string
	for i := 0; i < 30; i++ {
		sentences = append(sentences, strings.Repeat("x", 40)+".")
	}
	text := strings.Join(sentences, " ")

	chunks, err := Split(text, 200, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected sentence-level splitting, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 200 {
			t.Fatalf("chunk %d exceeds size: %d", i, len([]rune(chunk)))
		}
	}
	if got := Reconstruct(chunks, 0); got != text {
		t.Fatalf("reconstruction does not match source")
	}
}

func TestSplit_OversizedSentenceEmittedWhole(t *testing.T) {
	long := strings.Repeat("y", 500) + "."
	text := "Intro sentence. " + long + " Outro sentence."

	chunks, err := Split(text, 100, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, long) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized sentence was split")
	}
	if got := Reconstruct(chunks, 0); got != text {
		t.Fatalf("reconstruction does not match source")
	}
}

func TestSplit_ArabicSentenceMarkers(t *testing.T) {
	sentence := strings.Repeat("كلمة ", 20) + "؟"
	var sentences []string
	for i := 0; i < 10; i++ {
		sentences = append(sentences, sentence)
	}
	text := strings.Join(sentences, " ")

	chunks, err := Split(text, 300, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected splitting at Arabic question marks, got %d chunks", len(chunks))
	}
	if got := Reconstruct(chunks, 0); got != text {
		t.Fatalf("reconstruction does not match source")
	}
}

func TestSplit_IdempotentOnOwnOutput(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 10; i++ {
		paragraphs = append(paragraphs, strings.Repeat("repeat ", 15)+"fin.")
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks, err := Split(text, 300, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, chunk := range chunks {
		again, errAgain := Split(chunk, 300, 0)
		if errAgain != nil {
			t.Fatalf("re-split chunk %d: %v", i, errAgain)
		}
		if len(again) != 1 || again[0] != chunk {
			t.Fatalf("chunk %d not stable under re-split", i)
		}
	}
}
