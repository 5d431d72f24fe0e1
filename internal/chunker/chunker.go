// Package chunker splits extracted document text into bounded, overlapping
// segments sized for one completion call.
package chunker

import (
	"errors"
	"strings"
)

// ErrOverlapTooLarge indicates the overlap is not smaller than the size.
var ErrOverlapTooLarge = errors.New("chunker: overlap must be smaller than size")

// sentenceTerminators close a sentence across the scripts we serve.
var sentenceTerminators = []rune{'.', '!', '?', '؟', '؛', '。', '！', '？', '…'}

// Split cuts text into ordered chunks of at most size characters. Each chunk
// after the first starts with the trailing overlap characters of the chunk
// before it, so concatenating the chunks while stripping that prefix
// reconstructs the source exactly. Cuts land on paragraph boundaries, falling
// back to sentence boundaries when one paragraph exceeds size. A single
// sentence longer than size is emitted as its own oversized chunk.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, errors.New("chunker: size must be positive")
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, ErrOverlapTooLarge
	}
	if text == "" {
		return nil, nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}, nil
	}

	var chunks []string
	prevEnd := 0
	for prevEnd < len(runes) {
		start := prevEnd
		if len(chunks) > 0 {
			start = prevEnd - overlap
			if start < 0 {
				start = 0
			}
		}
		if len(runes)-start <= size {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		limit := start + size
		cut := lastParagraphCut(runes, prevEnd, limit)
		if cut == 0 {
			cut = lastSentenceCut(runes, prevEnd, limit)
		}
		if cut == 0 {
			// No boundary fits: take the whole next sentence as-is.
			cut = nextSentenceCut(runes, prevEnd)
		}
		if len(chunks) == 0 && cut <= overlap {
			// The first chunk must outgrow the overlap or the second
			// chunk's seed would reach past it.
			cut = nextSentenceCut(runes, overlap)
		}
		chunks = append(chunks, string(runes[start:cut]))
		prevEnd = cut
	}
	return chunks, nil
}

// lastParagraphCut returns the rightmost paragraph boundary in (from, limit],
// or zero when none exists. A paragraph boundary sits just after a run of two
// or more newlines.
func lastParagraphCut(runes []rune, from, limit int) int {
	if limit > len(runes) {
		limit = len(runes)
	}
	best := 0
	for i := from; i < limit-1; i++ {
		if runes[i] != '\n' || runes[i+1] != '\n' {
			continue
		}
		end := i + 2
		for end < limit && runes[end] == '\n' {
			end++
		}
		if end > from && end > best {
			best = end
		}
		i = end - 1
	}
	return best
}

// lastSentenceCut returns the rightmost sentence boundary in (from, limit],
// or zero when none exists. Trailing whitespace stays with the sentence that
// precedes it.
func lastSentenceCut(runes []rune, from, limit int) int {
	if limit > len(runes) {
		limit = len(runes)
	}
	best := 0
	for i := from; i < limit; i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		for end < limit && isSpace(runes[end]) {
			end++
		}
		if end > from && end > best {
			best = end
		}
	}
	return best
}

// nextSentenceCut returns the first sentence boundary after from, or the end
// of the text when the remainder has none.
func nextSentenceCut(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isSpace(runes[end]) {
			end++
		}
		return end
	}
	return len(runes)
}

func isTerminator(r rune) bool {
	for _, t := range sentenceTerminators {
		if r == t {
			return true
		}
	}
	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// Reconstruct joins chunks produced by Split back into the source text,
// stripping each chunk's leading overlap.
func Reconstruct(chunks []string, overlap int) string {
	var builder strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			builder.WriteString(chunk)
			continue
		}
		runes := []rune(chunk)
		skip := overlap
		if skip > len(runes) {
			skip = len(runes)
		}
		builder.WriteString(string(runes[skip:]))
	}
	return builder.String()
}
