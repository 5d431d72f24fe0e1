package generation

import "testing"

func TestParseQuestions_FencedTrueFalse(t *testing.T) {
	raw := "```json\n[{\"type\":\"true_false\",\"question\":\"Q\",\"answer\":\"صح\"}]\n```"
	questions := ParseQuestions(raw)
	if len(questions) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.Type != QuestionTypeTrueFalse {
		t.Fatalf("type = %q, want %q", q.Type, QuestionTypeTrueFalse)
	}
	if q.Answer != "صح" {
		t.Fatalf("answer = %q", q.Answer)
	}
	if len(q.Options) != 2 || q.Options[0] != "صح" || q.Options[1] != "خطأ" {
		t.Fatalf("true/false options = %v", q.Options)
	}
}

func TestParseQuestions_MalformedYieldsEmpty(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		"```json\n{broken\n```",
		"[{\"question\": 1}]",
		"[]",
	} {
		if got := ParseQuestions(raw); len(got) != 0 {
			t.Fatalf("ParseQuestions(%q) = %v, want empty", raw, got)
		}
	}
}

func TestParseQuestions_ShortAnswerDropsOptions(t *testing.T) {
	raw := `[{"type":"short_answer","question":"اشرح","answer":"جواب","options":["a","b"]}]`
	questions := ParseQuestions(raw)
	if len(questions) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(questions))
	}
	if questions[0].Options != nil {
		t.Fatalf("short answer kept options %v", questions[0].Options)
	}
}

func TestParseQuestions_DefaultsToMultipleChoice(t *testing.T) {
	raw := `[{"type":"mcq","question":"Q1","options":["a","b","c","d"],"answer":"a","score":2}]`
	questions := ParseQuestions(raw)
	if len(questions) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(questions))
	}
	if questions[0].Type != QuestionTypeMultipleChoice {
		t.Fatalf("type = %q", questions[0].Type)
	}
	if questions[0].Score != 2 {
		t.Fatalf("score = %g", questions[0].Score)
	}
	if len(questions[0].Options) != 4 {
		t.Fatalf("options = %v", questions[0].Options)
	}
}

func TestParseQuestions_WrappedObject(t *testing.T) {
	raw := `{"questions":[{"type":"true_false","question":"Q","answer":"خطأ"}]}`
	if got := ParseQuestions(raw); len(got) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(got))
	}
}

func TestParseQuestions_ZeroScoreDefaultsToOne(t *testing.T) {
	raw := `[{"type":"short_answer","question":"Q","answer":"A"}]`
	questions := ParseQuestions(raw)
	if len(questions) != 1 || questions[0].Score != 1 {
		t.Fatalf("questions = %+v", questions)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"[1]", "[1]"},
		{"  [1]  ", "[1]"},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
