// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import (
	"docqa/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// CharChunker produces character windows of at most `size` characters with
// `overlap` characters shared between consecutive windows, so context is not
// lost at boundaries. Splitting is deterministic: the same text and
// configuration always yield identical chunks, which the content-id dedup
// scheme in the vector store relies on.
type CharChunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *CharChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &CharChunker{size: size, overlap: overlap}
}

// Split cuts text into chunks, propagating the document's metadata to every
// chunk and recording each chunk's character offset in the original text.
// Empty input produces no chunks and no error.
func (c *CharChunker) Split(doc domain.DocumentRecord, text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	total := len(runes)
	step := c.size - c.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := start + c.size
		if end > total {
			end = total
		}

		content := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			Content:     content,
			Source:      doc.Path,
			DocumentID:  doc.ID,
			StartIndex:  start,
			ContentHash: domain.HashContent(content),
			Metadata:    copyMetadata(doc),
		})

		// The final window reaches the end of the text; anything after it
		// would be a pure-overlap fragment.
		if end == total {
			break
		}
	}

	for i := range chunks {
		chunks[i].ChunkNumber = i + 1
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks, nil
}

func copyMetadata(doc domain.DocumentRecord) map[string]string {
	meta := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if doc.Name != "" {
		meta["document_name"] = doc.Name
	}
	if doc.Type != "" {
		meta["document_type"] = doc.Type
	}
	return meta
}
