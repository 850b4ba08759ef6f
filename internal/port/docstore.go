package port

import "docqa/internal/domain"

// DocumentStore is the external bookkeeping collaborator: it supplies the
// files to embed and receives status transitions after indexing.
type DocumentStore interface {
	Create(rec domain.DocumentRecord) (domain.DocumentRecord, error)

	// SetStatus transitions a document and records its chunk count.
	SetStatus(id string, status domain.DocumentStatus, chunkCount int) error

	// MarkError transitions a document to the Error status with a description.
	MarkError(id string, msg string) error

	Get(id string) (domain.DocumentRecord, error)

	GetByPath(path string) (domain.DocumentRecord, error)

	List() ([]domain.DocumentRecord, error)

	Delete(id string) error

	Close() error
}
