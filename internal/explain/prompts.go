package explain

import (
	"fmt"
	"strings"

	"github.com/pucet-prep/backend/internal/models"
)

const tutorSystemPrompt = `You are an expert academic tutor for the Panjab University Common Entrance Test (PU CET).
Provide a clear, logical, and educational step-by-step explanation.
- If the user choice is provided and it is wrong, explain why it might be a common mistake.
- Support LaTeX for math/science (use $ for inline, $$ for blocks).
- Always use standard ASCII characters for quotes (avoid smart quotes).`

const assistSystemPrompt = `You are an intelligent assistant helping an administrator manage content for an educational platform (PU CET exams).
Context: %s

Your goal is to help with:
1. Drafting subject descriptions.
2. Suggesting relevant topics or slugs.
3. Formatting content in Markdown/LaTeX.
4. Providing creative ideas for educational content.

Keep responses concise, professional, and directly useful.`

const defaultAssistContext = "General Admin Task"

// OptionLetter maps option index 0 to "A", 1 to "B" and so on.
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// BuildExplainPrompt renders the question, its lettered options, the
// correct letter and the learner's letter ("N/A" when unanswered).
func BuildExplainPrompt(q *models.Question, userChoice *int) string {
	var b strings.Builder
	b.WriteString("### Question Details:\n")
	fmt.Fprintf(&b, "Question: %s\n", q.Text)
	b.WriteString("Options:\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%s) %s\n", OptionLetter(i), opt)
	}

	user := "N/A"
	if userChoice != nil {
		user = OptionLetter(*userChoice)
	}
	fmt.Fprintf(&b, "\nCorrect Answer: %s\n", OptionLetter(q.CorrectOption))
	fmt.Fprintf(&b, "User's Choice: %s\n", user)
	return b.String()
}

func BuildAssistSystemPrompt(context string) string {
	if strings.TrimSpace(context) == "" {
		context = defaultAssistContext
	}
	return fmt.Sprintf(assistSystemPrompt, context)
}
