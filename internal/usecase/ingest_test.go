package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/fs"
	"docqa/internal/domain"
)

type memDocStore struct {
	records map[string]domain.DocumentRecord
	nextID  int
}

func newMemDocStore() *memDocStore {
	return &memDocStore{records: make(map[string]domain.DocumentRecord)}
}

func (m *memDocStore) Create(rec domain.DocumentRecord) (domain.DocumentRecord, error) {
	if rec.ID == "" {
		m.nextID++
		rec.ID = filepath.Base(rec.Path)
	}
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memDocStore) SetStatus(id string, status domain.DocumentStatus, chunkCount int) error {
	rec, ok := m.records[id]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.ChunkCount = chunkCount
	m.records[id] = rec
	return nil
}

func (m *memDocStore) MarkError(id string, msg string) error {
	rec, ok := m.records[id]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = domain.StatusError
	rec.Error = msg
	m.records[id] = rec
	return nil
}

func (m *memDocStore) Get(id string) (domain.DocumentRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return rec, errors.New("not found")
	}
	return rec, nil
}

func (m *memDocStore) GetByPath(path string) (domain.DocumentRecord, error) {
	for _, rec := range m.records {
		if rec.Path == path {
			return rec, nil
		}
	}
	return domain.DocumentRecord{}, errors.New("not found")
}

func (m *memDocStore) List() ([]domain.DocumentRecord, error) {
	var out []domain.DocumentRecord
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memDocStore) Delete(id string) error {
	delete(m.records, id)
	return nil
}

func (m *memDocStore) Close() error { return nil }

type memIndex struct {
	added     []domain.Chunk
	recreated bool
	failAdd   error
}

func (m *memIndex) Add(chunks []domain.Chunk) error {
	if m.failAdd != nil {
		return m.failAdd
	}
	m.added = append(m.added, chunks...)
	return nil
}

func (m *memIndex) AddWithRecreate(chunks []domain.Chunk) error {
	m.recreated = true
	m.added = chunks
	return nil
}

func (m *memIndex) Search(query string, k int) ([]domain.ScoredChunk, error) { return nil, nil }
func (m *memIndex) Exists() bool                                             { return len(m.added) > 0 }
func (m *memIndex) Delete(ids []string) error                                { return nil }
func (m *memIndex) Clear() error                                             { return nil }
func (m *memIndex) Contents() ([]domain.Chunk, error)                        { return m.added, nil }
func (m *memIndex) Stats() (domain.CollectionStats, error) {
	return domain.CollectionStats{TotalChunks: len(m.added)}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIngest(index *memIndex, docs *memDocStore, includes []string) *Ingest {
	walker := fs.NewWalker(includes, nil)
	return NewIngest(walker, chunker.New(100, 20), index, docs, "mock-model")
}

func TestIngestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha content for the first document")
	writeFile(t, dir, "b.md", "# Beta\n\nbeta content for the second document")

	index := &memIndex{}
	docs := newMemDocStore()
	ingest := newTestIngest(index, docs, []string{"**/*.txt", "**/*.md"})

	result, err := ingest.Run(dir, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesIngested != 2 {
		t.Errorf("expected 2 files ingested, got %d", result.FilesIngested)
	}
	if result.ChunksIndexed != len(index.added) {
		t.Errorf("result count %d != indexed chunks %d", result.ChunksIndexed, len(index.added))
	}

	for _, rec := range docs.records {
		if rec.Status != domain.StatusIndexed {
			t.Errorf("document %s has status %s, want %s", rec.Path, rec.Status, domain.StatusIndexed)
		}
		if rec.ChunkCount == 0 {
			t.Errorf("document %s has zero chunk count", rec.Path)
		}
	}

	for _, c := range index.added {
		if c.Metadata["embedding_model"] != "mock-model" {
			t.Errorf("chunk missing embedding_model metadata: %v", c.Metadata)
		}
		if c.Metadata["batch_id"] == "" {
			t.Error("chunk missing batch_id metadata")
		}
	}
}

func TestIngestSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "supported content")
	writeFile(t, dir, "image.png", "\x89PNG not really")

	index := &memIndex{}
	ingest := newTestIngest(index, newMemDocStore(), []string{"**/*"})

	result, err := ingest.Run(dir, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesIngested != 1 {
		t.Errorf("expected 1 file ingested, got %d", result.FilesIngested)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("expected 1 file skipped, got %d", result.FilesSkipped)
	}
	if result.FilesFailed != 0 {
		t.Errorf("expected no failures, got %d: %v", result.FilesFailed, result.Errors)
	}
}

func TestIngestRejectsOversizeFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", "0123456789")

	index := &memIndex{}
	docs := newMemDocStore()
	ingest := newTestIngest(index, docs, []string{"**/*.txt"})

	result, err := ingest.Run(dir, IngestOptions{MaxFileBytes: 5})
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesFailed != 1 {
		t.Fatalf("expected 1 failure, got %d", result.FilesFailed)
	}
	if len(index.added) != 0 {
		t.Errorf("oversize file was indexed: %d chunks", len(index.added))
	}
}

func TestIngestIndexFailureMarksDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content that will fail to index")

	index := &memIndex{failAdd: errors.New("store write failed")}
	docs := newMemDocStore()
	ingest := newTestIngest(index, docs, []string{"**/*.txt"})

	result, err := ingest.Run(dir, IngestOptions{})
	if err == nil {
		t.Fatal("expected error from index write")
	}
	if result.FilesIngested != 0 || result.ChunksIndexed != 0 {
		t.Errorf("failed run reported success: %+v", result)
	}

	rec, err := docs.Get("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != domain.StatusError {
		t.Errorf("document status %s, want %s", rec.Status, domain.StatusError)
	}
	if rec.Error == "" {
		t.Error("document error not recorded")
	}
}

func TestIngestRecreateUsesDestructivePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")

	index := &memIndex{}
	ingest := newTestIngest(index, newMemDocStore(), []string{"**/*.txt"})

	if _, err := ingest.Run(dir, IngestOptions{Recreate: true}); err != nil {
		t.Fatal(err)
	}
	if !index.recreated {
		t.Error("recreate option did not use the destructive path")
	}
}

func TestIngestProgressCallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one")
	writeFile(t, dir, "b.txt", "two")

	var calls []int
	ingest := newTestIngest(&memIndex{}, newMemDocStore(), []string{"**/*.txt"})
	_, err := ingest.Run(dir, IngestOptions{Progress: func(done, total int) {
		calls = append(calls, done)
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 || calls[1] != 2 {
		t.Errorf("unexpected progress calls: %v", calls)
	}
}
