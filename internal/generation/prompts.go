package generation

import (
	"fmt"
	"strings"
)

const chunkSeparator = "\n\n---\n\n"

const summarySystemPrompt = "أنت مساعد أكاديمي خبير متخصص في تلخيص المحتوى التعليمي."
const questionsSystemPrompt = "أنت مدرس جامعي خبير متخصص في إنشاء أسئلة اختبارية أكاديمية."
const answerSystemPrompt = "أنت مساعد أكاديمي خبير يجيب على الأسئلة بناءً على محتوى المستندات."

func notesSection(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return ""
	}
	return "\n\nUSER_INSTRUCTION: " + instructions
}

func summaryPrompt(text string, maxWords int, instructions string) string {
	return fmt.Sprintf(`TASK: تلخيص
قم بتلخيص النص التالي بشكل مختصر ومفيد بصيغة Markdown. ركز على:
- النقاط الرئيسية والمفاهيم الأساسية
- المعلومات الأكثر أهمية
- الحفاظ على الدقة العلمية
- استخدام عناوين وقوائم لتنظيم المحتوى%s

OUTPUT_FORMAT: Markdown (مع عناوين وقوائم وتنسيق واضح)
LANGUAGE: Arabic (ما لم يُحدد خلاف ذلك)

CONTEXT:
%s

التلخيص (بحد أقصى %d كلمة، بصيغة Markdown):`, notesSection(instructions), text, maxWords)
}

func questionsPrompt(text string, matrix QuestionMatrix, instructions string) string {
	var parts []string
	if matrix.MCQCount > 0 {
		parts = append(parts, fmt.Sprintf("- %d سؤال اختيار من متعدد (multiple_choice) - كل سؤال %g درجة", matrix.MCQCount, matrix.MCQScore))
	}
	if matrix.TrueFalseCount > 0 {
		parts = append(parts, fmt.Sprintf("- %d سؤال صح وخطأ (true_false) - كل سؤال %g درجة", matrix.TrueFalseCount, matrix.TrueFalseScore))
	}
	if matrix.ShortAnswerCount > 0 {
		parts = append(parts, fmt.Sprintf("- %d سؤال إجابة قصيرة (short_answer) - كل سؤال %g درجة", matrix.ShortAnswerCount, matrix.ShortAnswerScore))
	}
	return fmt.Sprintf(`TASK: توليد أسئلة اختبارية
CONFIG:
%s

إجمالي: %d سؤال | الدرجة الكلية: %g%s

أرجع الإجابة بصيغة JSON فقط بدون أي نص إضافي، كمصفوفة:
[
    {
        "type": "multiple_choice" أو "true_false" أو "short_answer",
        "question": "نص السؤال",
        "options": ["خيار1", "خيار2", "خيار3", "خيار4"],
        "answer": "الإجابة الصحيحة",
        "explanation": "شرح مختصر",
        "score": الدرجة_كرقم
    }
]

ملاحظات:
- للأسئلة true_false: الخيارات ["صح", "خطأ"] فقط
- للأسئلة short_answer: لا تضع options (اجعلها null)
- تأكد أن الأسئلة متنوعة وتغطي أجزاء مختلفة من النص

النص:
%s

الأسئلة (JSON فقط):`, strings.Join(parts, "\n"), matrix.TotalQuestions(), matrix.TotalScore(), notesSection(instructions), text)
}

func answerPrompt(context, question, instructions string) string {
	return fmt.Sprintf(`TASK: الإجابة على سؤال أكاديمي
قواعد:
1. أجب بناءً على المحتوى المقدم فقط
2. إذا لم تجد الإجابة، قل ذلك بوضوح
3. استخدم اللغة العربية الفصحى
4. كن واضحاً ومفصلاً
5. استخدم صيغة Markdown في الإجابة%s

OUTPUT_FORMAT: Markdown
LANGUAGE: Arabic (ما لم يُحدد خلاف ذلك)

CONTEXT:
%s

السؤال: %s

الإجابة:`, notesSection(instructions), context, question)
}
