package generation

import (
	"encoding/json"
	"strings"
)

// Question type identifiers as emitted by the model and stored in
// rendered artifacts.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeShortAnswer    = "short_answer"
)

// trueFalseOptions is the fixed option set for true/false questions.
var trueFalseOptions = []string{"صح", "خطأ"}

// Question is one structured question extracted from a model response.
type Question struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Score       float64  `json:"score"`
}

// ParseQuestions extracts a question list from a raw model response.
// Fenced code blocks around the JSON are stripped. A malformed or
// plain-text response yields an empty list, never an error; callers
// treat empty as "degrade to fallback".
func ParseQuestions(raw string) []Question {
	payload := stripCodeFence(raw)
	if payload == "" {
		return nil
	}
	var parsed []Question
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		// Some models wrap the array in an object.
		var wrapped struct {
			Questions []Question `json:"questions"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapped); err != nil || len(wrapped.Questions) == 0 {
			return nil
		}
		parsed = wrapped.Questions
	}
	out := make([]Question, 0, len(parsed))
	for _, q := range parsed {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.Answer = strings.TrimSpace(q.Answer)
		switch normalizeQuestionType(q.Type) {
		case QuestionTypeTrueFalse:
			q.Type = QuestionTypeTrueFalse
			q.Options = append([]string(nil), trueFalseOptions...)
		case QuestionTypeShortAnswer:
			q.Type = QuestionTypeShortAnswer
			q.Options = nil
		default:
			q.Type = QuestionTypeMultipleChoice
		}
		if q.Score <= 0 {
			q.Score = 1
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeQuestionType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))) {
	case "true_false", "truefalse", "tf":
		return QuestionTypeTrueFalse
	case "short_answer", "shortanswer", "essay":
		return QuestionTypeShortAnswer
	default:
		return QuestionTypeMultipleChoice
	}
}

// stripCodeFence removes an optional ```json ... ``` wrapper and
// returns the trimmed payload.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line, e.g. "json".
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
