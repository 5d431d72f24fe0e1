package generation

import (
	"sort"
	"strings"
)

const topRelevantChunks = 3

// TopRelevant returns up to k=3 chunks ordered by descending lexical
// overlap with the question. Overlap counts distinct case-folded words
// shared between chunk and question; ties keep original chunk order.
func TopRelevant(chunks []string, question string) []string {
	if len(chunks) <= 1 {
		return chunks
	}
	queryWords := wordSet(question)
	type scored struct {
		index int
		score int
	}
	ranked := make([]scored, len(chunks))
	for i, chunk := range chunks {
		score := 0
		for word := range wordSet(chunk) {
			if _, ok := queryWords[word]; ok {
				score++
			}
		}
		ranked[i] = scored{index: i, score: score}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})
	limit := topRelevantChunks
	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]string, 0, limit)
	for _, r := range ranked[:limit] {
		out = append(out, chunks[r.index])
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
