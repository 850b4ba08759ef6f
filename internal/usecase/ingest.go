package usecase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/adapter/loader"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	FilesIngested int
	FilesFailed   int
	FilesSkipped  int
	ChunksIndexed int
	Errors        []string
	Duration      time.Duration
}

// IngestOptions control a single ingestion run.
type IngestOptions struct {
	// Recreate drops the existing collection before writing. Destructive;
	// callers must opt in explicitly.
	Recreate bool
	// MaxFileBytes rejects files above this size. Zero means the loader
	// default.
	MaxFileBytes int64
	// Progress, when set, is called after each file with the number of
	// files handled so far and the total.
	Progress func(done, total int)
}

type recreatingIndex interface {
	AddWithRecreate(chunks []domain.Chunk) error
}

// Ingest walks source directories, splits documents into chunks and writes
// them to the vector index. Each file is processed independently; a failure
// is recorded and the run continues with the next file.
type Ingest struct {
	walker  port.FileWalker
	chunker port.Chunker
	index   port.VectorIndex
	docs    port.DocumentStore
	model   string
}

func NewIngest(walker port.FileWalker, chunker port.Chunker, index port.VectorIndex, docs port.DocumentStore, embeddingModel string) *Ingest {
	return &Ingest{
		walker:  walker,
		chunker: chunker,
		index:   index,
		docs:    docs,
		model:   embeddingModel,
	}
}

// Run ingests every matching file under root.
func (in *Ingest) Run(root string, opts IngestOptions) (IngestResult, error) {
	start := time.Now()
	result := IngestResult{}

	files, err := in.walker.Walk(root)
	if err != nil {
		return result, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	batchID := uuid.New().String()
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = loader.DefaultMaxFileBytes
	}

	var pending []domain.Chunk
	for i, f := range files {
		chunks, skipped, err := in.prepareFile(f, batchID, maxBytes)
		if err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, err))
		} else if skipped {
			result.FilesSkipped++
		} else {
			result.FilesIngested++
			result.ChunksIndexed += len(chunks)
			pending = append(pending, chunks...)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(files))
		}
	}

	if len(pending) > 0 {
		if err := in.write(pending, opts.Recreate); err != nil {
			in.markAllFailed(pending, err)
			result.ChunksIndexed = 0
			result.FilesFailed += result.FilesIngested
			result.FilesIngested = 0
			result.Duration = time.Since(start)
			return result, fmt.Errorf("failed to index chunks: %w", err)
		}
		in.markIndexed(pending)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// prepareFile validates, records, loads and splits a single file. The
// skipped return is true for files the loader does not support.
func (in *Ingest) prepareFile(f port.FileInfo, batchID string, maxBytes int64) ([]domain.Chunk, bool, error) {
	if err := loader.Validate(f.Path, f.Size, maxBytes); err != nil {
		if errors.Is(err, loader.ErrUnsupportedType) {
			return nil, true, nil
		}
		return nil, false, err
	}

	rec := domain.DocumentRecord{
		Path: f.Path,
		Name: filepath.Base(f.Path),
		Type: strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Path)), "."),
		Size: f.Size,
		Metadata: map[string]string{
			"batch_id": batchID,
		},
	}
	rec, err := in.docs.Create(rec)
	if err != nil {
		return nil, false, err
	}

	text, err := loader.Load(f.Path)
	if err != nil {
		in.markError(rec.ID, err)
		return nil, false, err
	}
	if err := in.docs.SetStatus(rec.ID, domain.StatusProcessed, 0); err != nil {
		return nil, false, err
	}

	chunks, err := in.chunker.Split(rec, text)
	if err != nil {
		in.markError(rec.ID, err)
		return nil, false, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range chunks {
		chunks[i].Metadata["batch_id"] = batchID
		chunks[i].Metadata["ingest_time"] = now
		chunks[i].Metadata["embedding_model"] = in.model
	}
	return chunks, false, nil
}

func (in *Ingest) write(chunks []domain.Chunk, recreate bool) error {
	if recreate {
		if ri, ok := in.index.(recreatingIndex); ok {
			return ri.AddWithRecreate(chunks)
		}
	}
	return in.index.Add(chunks)
}

func (in *Ingest) markIndexed(chunks []domain.Chunk) {
	for id, n := range countByDocument(chunks) {
		if err := in.docs.SetStatus(id, domain.StatusIndexed, n); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to update document %s: %v\n", id, err)
		}
	}
}

func (in *Ingest) markAllFailed(chunks []domain.Chunk, cause error) {
	for id := range countByDocument(chunks) {
		in.markError(id, cause)
	}
}

func (in *Ingest) markError(id string, cause error) {
	if err := in.docs.MarkError(id, cause.Error()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record error for document %s: %v\n", id, err)
	}
}

func countByDocument(chunks []domain.Chunk) map[string]int {
	counts := make(map[string]int)
	for _, c := range chunks {
		counts[c.DocumentID]++
	}
	return counts
}
