package generation

// QuestionMatrix specifies how many questions of each type to generate
// and the score each one carries.
type QuestionMatrix struct {
	MCQCount         int     `json:"mcq_count"`
	MCQScore         float64 `json:"mcq_score"`
	TrueFalseCount   int     `json:"true_false_count"`
	TrueFalseScore   float64 `json:"true_false_score"`
	ShortAnswerCount int     `json:"short_answer_count"`
	ShortAnswerScore float64 `json:"short_answer_score"`
}

// DefaultQuestionMatrix carries the per-type default scores with zero
// counts; callers fill in the counts they want.
func DefaultQuestionMatrix() QuestionMatrix {
	return QuestionMatrix{
		MCQScore:         2.0,
		TrueFalseScore:   1.0,
		ShortAnswerScore: 3.0,
	}
}

func (m QuestionMatrix) TotalQuestions() int {
	return m.MCQCount + m.TrueFalseCount + m.ShortAnswerCount
}

func (m QuestionMatrix) TotalScore() float64 {
	return float64(m.MCQCount)*m.MCQScore +
		float64(m.TrueFalseCount)*m.TrueFalseScore +
		float64(m.ShortAnswerCount)*m.ShortAnswerScore
}
