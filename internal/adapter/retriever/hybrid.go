package retriever

import (
	"sort"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	// DefaultTopK is the candidate count for each sub-retriever.
	DefaultTopK = 16
	// DefaultScoreThreshold discards vector results scoring strictly below it.
	DefaultScoreThreshold = 0.3
	// DefaultVectorWeight is the vector side's share of the fused ranking;
	// the lexical side gets the remainder.
	DefaultVectorWeight = 0.6
	// DefaultRRFK is the reciprocal-rank-fusion constant.
	DefaultRRFK = 60
)

// Hybrid merges dense vector search with sparse BM25 ranking. The lexical
// index is rebuilt from the vector store's current contents on every call;
// when it cannot be built or yields nothing, retrieval degrades to
// vector-only search with identical ordering.
type Hybrid struct {
	index          port.VectorIndex
	scoreThreshold float64
	vectorWeight   float64
	rrfK           int
}

// Options configures a Hybrid retriever. Zero values select the defaults.
type Options struct {
	ScoreThreshold float64
	VectorWeight   float64
	RRFK           int
}

func NewHybrid(index port.VectorIndex, opts Options) *Hybrid {
	threshold := opts.ScoreThreshold
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}
	weight := opts.VectorWeight
	if weight <= 0 || weight > 1 {
		weight = DefaultVectorWeight
	}
	rrfK := opts.RRFK
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	return &Hybrid{
		index:          index,
		scoreThreshold: threshold,
		vectorWeight:   weight,
		rrfK:           rrfK,
	}
}

// Search runs both sub-retrievers and fuses their rankings.
func (h *Hybrid) Search(query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vectorResults, err := h.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	vectorResults = h.filterByThreshold(vectorResults)

	lexicalResults := h.lexicalSearch(query, k)
	if len(lexicalResults) == 0 {
		// Degrade to vector-only; order must match vector search exactly.
		return capResults(dedupByHash(vectorResults), k), nil
	}

	fused := h.fuse(vectorResults, lexicalResults)
	return capResults(fused, k), nil
}

// lexicalSearch rebuilds the BM25 index from the store's contents. Any
// failure degrades to no lexical results rather than an error.
func (h *Hybrid) lexicalSearch(query string, k int) []domain.ScoredChunk {
	chunks, err := h.index.Contents()
	if err != nil || len(chunks) == 0 {
		return nil
	}
	return NewBM25Index(chunks).TopK(query, k)
}

func (h *Hybrid) filterByThreshold(results []domain.ScoredChunk) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= h.scoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// fuse combines the two rankings with weighted reciprocal rank fusion,
// keyed by content hash so a chunk surfaced by both sides counts once.
func (h *Hybrid) fuse(vectorResults, lexicalResults []domain.ScoredChunk) []domain.ScoredChunk {
	scores := make(map[string]float64)
	first := make(map[string]domain.Chunk)
	order := make([]string, 0, len(vectorResults)+len(lexicalResults))

	note := func(hash string, ch domain.Chunk) {
		if _, seen := first[hash]; !seen {
			first[hash] = ch
			order = append(order, hash)
		}
	}

	for rank, r := range vectorResults {
		hash := r.Chunk.ContentHash
		scores[hash] += h.vectorWeight / float64(h.rrfK+rank+1)
		note(hash, r.Chunk)
	}

	lexicalWeight := 1 - h.vectorWeight
	for rank, r := range lexicalResults {
		hash := r.Chunk.ContentHash
		scores[hash] += lexicalWeight / float64(h.rrfK+rank+1)
		note(hash, r.Chunk)
	}

	fused := make([]domain.ScoredChunk, 0, len(order))
	for _, hash := range order {
		fused = append(fused, domain.ScoredChunk{Chunk: first[hash], Score: scores[hash]})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

// dedupByHash keeps the first occurrence of each content hash, preserving
// order.
func dedupByHash(results []domain.ScoredChunk) []domain.ScoredChunk {
	seen := make(map[string]struct{}, len(results))
	out := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.ContentHash]; ok {
			continue
		}
		seen[r.Chunk.ContentHash] = struct{}{}
		out = append(out, r)
	}
	return out
}

func capResults(results []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(results) > k {
		return results[:k]
	}
	return results
}
