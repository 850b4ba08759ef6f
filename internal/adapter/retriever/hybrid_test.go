package retriever

import (
	"errors"
	"testing"

	"docqa/internal/domain"
)

// fakeIndex is a canned port.VectorIndex for exercising fusion behavior.
type fakeIndex struct {
	results  []domain.ScoredChunk
	contents []domain.Chunk
	err      error
}

func (f *fakeIndex) Search(query string, k int) ([]domain.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeIndex) Add(chunks []domain.Chunk) error      { return nil }
func (f *fakeIndex) Exists() bool                         { return true }
func (f *fakeIndex) Delete(ids []string) error            { return nil }
func (f *fakeIndex) Clear() error                         { return nil }
func (f *fakeIndex) Contents() ([]domain.Chunk, error)    { return f.contents, nil }
func (f *fakeIndex) Stats() (domain.CollectionStats, error) {
	return domain.CollectionStats{TotalChunks: len(f.contents)}, nil
}

func scored(content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Content:     content,
			Source:      "docs/a.txt",
			ContentHash: domain.HashContent(content),
		},
		Score: score,
	}
}

func TestHybridThresholdFiltersVectorResults(t *testing.T) {
	index := &fakeIndex{
		results: []domain.ScoredChunk{
			scored("strong match", 0.9),
			scored("weak match", 0.1),
		},
	}
	h := NewHybrid(index, Options{ScoreThreshold: 0.3})

	results, err := h.Search("query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].Content != "strong match" {
		t.Errorf("wrong result survived: %q", results[0].Content)
	}
}

func TestHybridDegradesToVectorOnly(t *testing.T) {
	// Contents share no terms with the query, so the lexical side returns
	// nothing and the output must equal vector search exactly.
	vector := []domain.ScoredChunk{
		scored("first dense result", 0.8),
		scored("second dense result", 0.6),
	}
	index := &fakeIndex{
		results:  vector,
		contents: []domain.Chunk{vector[0].Chunk, vector[1].Chunk},
	}
	h := NewHybrid(index, Options{})

	results, err := h.Search("zeppelin", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(vector) {
		t.Fatalf("expected %d results, got %d", len(vector), len(results))
	}
	for i := range results {
		if results[i].ContentHash != vector[i].ContentHash {
			t.Errorf("result %d out of order: %q", i, results[i].Content)
		}
		if results[i].Score != vector[i].Score {
			t.Errorf("result %d score changed: %f != %f", i, results[i].Score, vector[i].Score)
		}
	}
}

func TestHybridDedupByContentHash(t *testing.T) {
	dup := scored("duplicated content", 0.9)
	index := &fakeIndex{
		results: []domain.ScoredChunk{dup, dup, scored("unique content", 0.8)},
	}
	h := NewHybrid(index, Options{})

	results, err := h.Search("zeppelin", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected dedup to 2 results, got %d", len(results))
	}
}

func TestHybridFusionPrefersBothSides(t *testing.T) {
	// "shared" appears in the vector ranking and matches the query
	// lexically; "dense only" ranks higher on the vector side but gets no
	// lexical support, so fusion puts "shared" first.
	shared := scored("shared zeppelin chunk", 0.7)
	denseOnly := scored("dense only chunk", 0.9)
	index := &fakeIndex{
		results:  []domain.ScoredChunk{denseOnly, shared},
		contents: []domain.Chunk{denseOnly.Chunk, shared.Chunk},
	}
	h := NewHybrid(index, Options{})

	results, err := h.Search("zeppelin", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ContentHash != shared.ContentHash {
		t.Errorf("expected doubly-supported chunk first, got %q", results[0].Content)
	}
}

func TestHybridCapsAtK(t *testing.T) {
	index := &fakeIndex{
		results: []domain.ScoredChunk{
			scored("one", 0.9),
			scored("two", 0.8),
			scored("three", 0.7),
		},
	}
	h := NewHybrid(index, Options{})

	results, err := h.Search("zeppelin", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestHybridPropagatesSearchError(t *testing.T) {
	index := &fakeIndex{err: errors.New("embedding endpoint down")}
	h := NewHybrid(index, Options{})

	if _, err := h.Search("query", 5); err == nil {
		t.Fatal("expected error from vector search")
	}
}
