package port

import "docqa/internal/domain"

type Chunker interface {
	Split(doc domain.DocumentRecord, text string) ([]domain.Chunk, error)
}
