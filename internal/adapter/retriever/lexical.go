// Package retriever implements the read path: a BM25 lexical index rebuilt
// from the current corpus, a hybrid retriever fusing it with vector search,
// and an LLM-backed query expander.
package retriever

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"docqa/internal/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Index is an in-memory sparse retriever over chunk texts. It carries no
// persistence: it is rebuilt from the vector store's contents whenever
// retrieval needs it, which is acceptable for corpora of a few thousand
// chunks.
type BM25Index struct {
	chunks  []domain.Chunk
	tokens  [][]string
	df      map[string]int
	avgLen  float64
}

// NewBM25Index builds the index from the given chunks. An empty corpus
// yields a valid index that returns no results.
func NewBM25Index(chunks []domain.Chunk) *BM25Index {
	idx := &BM25Index{
		chunks: chunks,
		tokens: make([][]string, len(chunks)),
		df:     make(map[string]int),
	}

	totalLen := 0
	for i, ch := range chunks {
		toks := tokenize(ch.Content)
		idx.tokens[i] = toks
		totalLen += len(toks)

		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			idx.df[t]++
		}
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// Len returns the number of indexed chunks.
func (idx *BM25Index) Len() int {
	return len(idx.chunks)
}

// TopK ranks the corpus against the query by BM25 and returns the k best
// chunks with their scores. An empty corpus or a query with no usable terms
// produces no results, not an error.
func (idx *BM25Index) TopK(query string, k int) []domain.ScoredChunk {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	n := float64(len(idx.chunks))
	scores := make([]float64, len(idx.chunks))

	for _, term := range queryTokens {
		docFreq := float64(idx.df[term])
		if docFreq == 0 {
			continue
		}
		idf := math.Log((n-docFreq+0.5)/(docFreq+0.5) + 1)

		for i, toks := range idx.tokens {
			tf := 0
			for _, t := range toks {
				if t == term {
					tf++
				}
			}
			if tf == 0 {
				continue
			}

			dl := float64(len(toks))
			tfF := float64(tf)
			scores[i] += idf * (tfF * (bm25K1 + 1)) / (tfF + bm25K1*(1-bm25B+bm25B*dl/idx.avgLen))
		}
	}

	results := make([]domain.ScoredChunk, 0, len(idx.chunks))
	for i, score := range scores {
		if score > 0 {
			results = append(results, domain.ScoredChunk{Chunk: idx.chunks[i], Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "to": {}, "of": {}, "in": {}, "for": {}, "on": {},
	"with": {}, "at": {}, "by": {}, "from": {}, "as": {}, "and": {}, "or": {},
	"but": {}, "not": {}, "this": {}, "that": {}, "it": {}, "its": {},
	"what": {}, "which": {}, "who": {}, "how": {}, "do": {}, "does": {},
}

// tokenize lowercases and splits on non-alphanumeric boundaries, dropping
// stopwords and single characters.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := strings.ToLower(current.String())
		current.Reset()
		if len(word) < 2 {
			return
		}
		if _, stop := stopwords[word]; stop {
			return
		}
		tokens = append(tokens, word)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
