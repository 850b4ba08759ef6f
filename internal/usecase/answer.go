package usecase

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const answerSystemPrompt = `You are a helpful assistant that answers questions using only the provided context. If the context does not contain the answer, say so plainly instead of guessing.`

const answerPromptTemplate = `Use the following context to answer the question.

Context:
%s

Question: %s

Answer:`

const (
	clarificationText = "Please provide a question so I can help you."
	apologyText       = "I'm sorry, I was unable to produce an answer to your question. Please try again."
)

// Answerer runs the full question flow: expand the question, retrieve
// context for every variant, and synthesize a grounded answer.
type Answerer struct {
	retriever  port.Retriever
	expander   port.QueryExpander
	llm        port.LLM
	collection string
	topK       int
}

func NewAnswerer(retriever port.Retriever, expander port.QueryExpander, llm port.LLM, collection string, topK int) *Answerer {
	return &Answerer{
		retriever:  retriever,
		expander:   expander,
		llm:        llm,
		collection: collection,
		topK:       topK,
	}
}

// Answer never returns an error; every failure mode degrades to a fixed
// user-facing message with the cause recorded in the answer metadata.
func (a *Answerer) Answer(question string) domain.Answer {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{
			Text:    clarificationText,
			Sources: []domain.Source{},
			Metadata: map[string]any{
				"empty_question": true,
			},
		}
	}

	questions := []string{question}
	if a.expander != nil {
		questions = a.expander.Expand(question)
	}

	// Generation runs even with an empty context; the system prompt tells
	// the model to say when the context holds no answer.
	chunks := a.retrieveAll(questions)

	contexts := make([]string, len(chunks))
	for i, c := range chunks {
		contexts[i] = c.Content
	}
	prompt := fmt.Sprintf(answerPromptTemplate, strings.Join(contexts, "\n\n"), question)

	text, err := a.llm.GenerateWithSystem(answerSystemPrompt, prompt)
	if err != nil {
		return domain.Answer{
			Text:    apologyText,
			Sources: []domain.Source{},
			Metadata: map[string]any{
				"error": err.Error(),
			},
		}
	}

	sources := collectSources(chunks)
	return domain.Answer{
		Text:    strings.TrimSpace(text),
		Sources: sources,
		Metadata: map[string]any{
			"total_sources":          len(sources),
			"total_chunks_retrieved": len(chunks),
			"questions_used":         len(questions),
			"collection":             a.collection,
		},
	}
}

// retrieveAll unions the retrieval results for every question variant,
// deduplicated by content hash in first-seen order. A variant whose
// retrieval fails is skipped.
func (a *Answerer) retrieveAll(questions []string) []domain.ScoredChunk {
	seen := make(map[string]bool)
	var out []domain.ScoredChunk
	for _, q := range questions {
		results, err := a.retriever.Search(q, a.topK)
		if err != nil {
			continue
		}
		for _, r := range results {
			if seen[r.ContentHash] {
				continue
			}
			seen[r.ContentHash] = true
			out = append(out, r)
		}
	}
	return out
}

// collectSources lists each distinct origin once, in first-seen order.
func collectSources(chunks []domain.ScoredChunk) []domain.Source {
	seen := make(map[string]bool)
	sources := []domain.Source{}
	for _, c := range chunks {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		sources = append(sources, domain.Source{
			Source:       c.Source,
			DocumentName: c.Metadata["document_name"],
			ChunkNumber:  c.ChunkNumber,
		})
	}
	return sources
}
