package generation

import "strings"

const fallbackSummaryChars = 1200

// localSummary is the deterministic fallback when every upstream
// summarization attempt fails. It takes leading sentences up to the
// character budget so the operation always produces something.
func localSummary(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if maxChars <= 0 {
		maxChars = fallbackSummaryChars
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	var b strings.Builder
	used := 0
	for _, sentence := range splitSentences(text) {
		length := len([]rune(sentence))
		if used+length+1 > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
			used++
		}
		b.WriteString(sentence)
		used += length
	}
	if b.Len() == 0 {
		return strings.TrimSpace(string(runes[:maxChars]))
	}
	return b.String()
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '؟', '؛', '。', '！', '？', '…':
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
