package generation

import (
	"fmt"
	"strings"
)

var questionTypeLabels = map[string]string{
	QuestionTypeMultipleChoice: "اختيار من متعدد",
	QuestionTypeTrueFalse:      "صح وخطأ",
	QuestionTypeShortAnswer:    "إجابة قصيرة",
}

// optionLetters are the Arabic option markers; indexes beyond four fall
// back to Latin letters.
var optionLetters = []rune{'أ', 'ب', 'ج', 'د'}

// QuestionsMarkdown renders a question list as a Markdown exam sheet.
func QuestionsMarkdown(questions []Question) string {
	var lines []string
	lines = append(lines, "# بنك الأسئلة المُولَّدة بالذكاء الاصطناعي\n")
	for i, q := range questions {
		label := questionTypeLabels[q.Type]
		if label == "" {
			label = q.Type
		}
		lines = append(lines, fmt.Sprintf("## السؤال %d (%s) - [%g درجة]", i+1, label, q.Score))
		lines = append(lines, "\n"+q.Question+"\n")
		if len(q.Options) > 0 {
			for j, opt := range q.Options {
				var letter rune
				if j < len(optionLetters) {
					letter = optionLetters[j]
				} else {
					letter = rune('a' + j)
				}
				lines = append(lines, fmt.Sprintf("- %c) %s", letter, opt))
			}
			lines = append(lines, "")
		}
		lines = append(lines, "**الإجابة:** "+q.Answer)
		if q.Explanation != "" {
			lines = append(lines, "\n**الشرح:** "+q.Explanation)
		}
		lines = append(lines, "\n---\n")
	}
	return strings.Join(lines, "\n")
}

// chatMarkdown renders a Q&A exchange for the chat artifact category.
func chatMarkdown(question, answer string) string {
	var b strings.Builder
	b.WriteString("# سؤال وجواب\n\n")
	b.WriteString("## السؤال\n\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n## الإجابة\n\n")
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n")
	return b.String()
}
