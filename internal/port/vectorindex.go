package port

import "docqa/internal/domain"

// VectorIndex is a persistent store of (vector, text, metadata) triples.
// Entries are owned exclusively by the index; readers go through Search
// and Contents, never mutate entries directly.
type VectorIndex interface {
	// Add embeds and writes chunks. Writes are idempotent per content-derived
	// id: chunks whose id already exists in the store are skipped.
	Add(chunks []domain.Chunk) error

	// Search embeds the query text and returns the k nearest entries with
	// their similarity scores, best first.
	Search(query string, k int) ([]domain.ScoredChunk, error)

	// Exists reports whether the persisted collection exists on disk and
	// holds at least one entry.
	Exists() bool

	Stats() (domain.CollectionStats, error)

	// Delete removes entries by id, best effort, and flushes.
	Delete(ids []string) error

	// Clear irreversibly wipes the persisted collection.
	Clear() error

	// Contents returns a consistent snapshot of every stored chunk, in
	// stable order. Used to rebuild the lexical index.
	Contents() ([]domain.Chunk, error)
}
