package retriever

import (
	"fmt"
	"regexp"
	"strings"

	"docqa/internal/port"
)

const maxExtraQuestions = 2

const expandSystemPrompt = `You generate auxiliary search questions for a document question-answering system.
Given the user's question, produce exactly 2 additional related questions that could surface complementary information in the documents.
The additional questions must:
- Address different but related facets of the original question
- Be specific and useful for information retrieval
- Cover alternative contexts or framings of the topic

Respond ONLY with the 2 additional questions, one per line, without numbering or commentary.`

var (
	leadingNumber = regexp.MustCompile(`^\d+[.)]\s*`)
	leadingBullet = regexp.MustCompile(`^[-*•]\s*`)
)

// Expander asks the generation model for related questions to widen
// retrieval recall. Expansions are used only for retrieval; the original
// question is what the generation model ultimately answers.
type Expander struct {
	llm port.LLM
}

func NewExpander(llm port.LLM) *Expander {
	return &Expander{llm: llm}
}

// Expand returns the original question followed by up to 2 related
// questions. Model failure is non-fatal: the caller gets the original
// question alone.
func (e *Expander) Expand(question string) []string {
	if e.llm == nil {
		return []string{question}
	}

	userPrompt := fmt.Sprintf("Original question: %s\n\nGenerate the 2 additional questions:", question)
	response, err := e.llm.GenerateWithSystem(expandSystemPrompt, userPrompt)
	if err != nil {
		return []string{question}
	}

	questions := []string{question}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = leadingNumber.ReplaceAllString(line, "")
		line = leadingBullet.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)

		if line == "" || line == question {
			continue
		}
		questions = append(questions, line)
		if len(questions) == 1+maxExtraQuestions {
			break
		}
	}

	return questions
}
