package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Chunk is a contiguous span of cleaned text extracted from one source document.
type Chunk struct {
	Content     string
	Source      string
	DocumentID  string
	ChunkNumber int // 1-based position within the parent document
	TotalChunks int
	StartIndex  int // character offset in the original text
	ContentHash string
	Metadata    map[string]string
}

// HashContent returns the stable content hash used for dedup across batches
// and across retrieval paths. It depends on the content bytes alone.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// ScoredChunk is a retrieval hit: the stored chunk plus its score.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Source is a citation backing an answer.
type Source struct {
	Source       string `json:"source"`
	DocumentName string `json:"document_name"`
	ChunkNumber  int    `json:"chunk_number"`
}

// Answer is the result of one question through the pipeline. Metadata carries
// bookkeeping such as chunk counts, and an "error" entry when the pipeline
// degraded to a fallback answer.
type Answer struct {
	Text     string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata map[string]any `json:"metadata"`
}

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "Pending"
	StatusProcessed DocumentStatus = "Processed"
	StatusIndexed   DocumentStatus = "Indexed"
	StatusError     DocumentStatus = "Error"
)

// DocumentRecord is the bookkeeping entity for an ingested file.
type DocumentRecord struct {
	ID         string
	Path       string
	Name       string
	Type       string
	Size       int64
	Status     DocumentStatus
	ChunkCount int
	Error      string
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CollectionStats describes the persisted vector collection.
type CollectionStats struct {
	TotalChunks    int                 `json:"total_chunks"`
	EmbeddingDim   int                 `json:"embedding_dim"`
	EmbeddingModel string              `json:"embedding_model"`
	SampleIDs      []string            `json:"sample_ids"`
	SampleMetadata []map[string]string `json:"sample_metadatas"`
	MetadataFields []string            `json:"metadata_fields"`
}
