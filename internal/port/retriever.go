package port

import "docqa/internal/domain"

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search searches for chunks matching the query and returns top-k results.
	Search(query string, k int) ([]domain.ScoredChunk, error)
}

// QueryExpander widens retrieval recall by generating auxiliary questions.
// The first element of the returned slice is always the original question.
type QueryExpander interface {
	Expand(question string) []string
}
