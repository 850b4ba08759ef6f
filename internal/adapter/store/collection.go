// Package store implements the persistent vector index: a named,
// directory-backed collection of (id, vector, chunk) entries over BoltDB.
// Search is brute-force cosine similarity; corpora are modest (thousands of
// chunks), so no approximate index is needed.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var bucketEntries = []byte("entries")

const (
	writeAttempts  = 3
	removeAttempts = 4
)

// Collection is a persisted vector collection identified by a collection
// name and a storage directory. Reopening with the same pair and a
// compatible embedder restores the stored entries.
//
// A write in progress must not interleave with another write to the same
// collection; the internal mutex enforces single-writer access within the
// process, and BoltDB's file lock guards against a second process.
type Collection struct {
	name     string
	dir      string
	path     string
	embedder port.Embedder

	mu      sync.RWMutex
	db      *bbolt.DB
	entries map[string]entry
}

type entry struct {
	vector []float32
	chunk  domain.Chunk
}

type storedEntry struct {
	Vector []float32    `json:"v"`
	Chunk  chunkPayload `json:"c"`
}

type chunkPayload struct {
	Content     string            `json:"content"`
	Source      string            `json:"source"`
	DocumentID  string            `json:"document_id"`
	ChunkNumber int               `json:"chunk_number"`
	TotalChunks int               `json:"total_chunks"`
	StartIndex  int               `json:"start_index"`
	ContentHash string            `json:"content_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Open opens (or creates) the collection at <dir>/<name>.db and loads its
// entries into memory for search.
func Open(dir, name string, embedder port.Embedder) (*Collection, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	path := filepath.Join(dir, name+".db")
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	c := &Collection{
		name:     name,
		dir:      dir,
		path:     path,
		embedder: embedder,
		db:       db,
		entries:  make(map[string]entry),
	}

	if err := c.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load collection %s: %w", name, err)
	}

	return c, nil
}

func (c *Collection) load() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			c.entries[string(k)] = entry{
				vector: stored.Vector,
				chunk:  payloadToChunk(string(k), stored.Chunk),
			}
			return nil
		})
	})
}

func payloadToChunk(id string, p chunkPayload) domain.Chunk {
	meta := p.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	meta["id"] = id
	return domain.Chunk{
		Content:     p.Content,
		Source:      p.Source,
		DocumentID:  p.DocumentID,
		ChunkNumber: p.ChunkNumber,
		TotalChunks: p.TotalChunks,
		StartIndex:  p.StartIndex,
		ContentHash: p.ContentHash,
		Metadata:    meta,
	}
}

func chunkToPayload(ch domain.Chunk) chunkPayload {
	return chunkPayload{
		Content:     ch.Content,
		Source:      ch.Source,
		DocumentID:  ch.DocumentID,
		ChunkNumber: ch.ChunkNumber,
		TotalChunks: ch.TotalChunks,
		StartIndex:  ch.StartIndex,
		ContentHash: ch.ContentHash,
		Metadata:    ch.Metadata,
	}
}

// EntryIDs derives the deterministic storage id for every chunk. Chunks are
// grouped by source document; each group gets a batch key hashed from the
// source path and the ordered content hashes, and each chunk's id combines
// that key with its position. Identical path + identical content therefore
// always map to the same ids, which is what makes Add idempotent.
func EntryIDs(chunks []domain.Chunk) []string {
	type group struct {
		hashes []string
		next   int
	}
	groups := make(map[string]*group)
	for _, ch := range chunks {
		g, ok := groups[ch.Source]
		if !ok {
			g = &group{}
			groups[ch.Source] = g
		}
		g.hashes = append(g.hashes, ch.ContentHash)
	}

	keys := make(map[string]string, len(groups))
	for source, g := range groups {
		h := sha256.New()
		h.Write([]byte(source))
		h.Write([]byte{0})
		for _, ch := range g.hashes {
			h.Write([]byte(ch))
		}
		keys[source] = hex.EncodeToString(h.Sum(nil)[:8])
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		g := groups[ch.Source]
		ids[i] = fmt.Sprintf("doc_%s_%d", keys[ch.Source], g.next)
		g.next++
	}
	return ids
}

// Add embeds and writes chunks. Ids already present in the collection are
// skipped, giving an at-most-once-write guarantee per content id; re-adding
// a document with unchanged content is a no-op. Transient write failures are
// retried with backoff. Add never recreates the collection; see
// AddWithRecreate for the destructive fallback.
func (c *Collection) Add(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := EntryIDs(chunks)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return fmt.Errorf("collection %s is closed", c.name)
	}

	var newChunks []domain.Chunk
	var newIDs []string
	for i, id := range ids {
		if _, exists := c.entries[id]; exists {
			continue
		}
		newChunks = append(newChunks, chunks[i])
		newIDs = append(newIDs, id)
	}
	if len(newChunks) == 0 {
		return nil
	}

	texts := make([]string, len(newChunks))
	for i, ch := range newChunks {
		texts[i] = ch.Content
	}
	vectors, err := c.embedder.Embed(texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(newChunks), err)
	}
	if len(vectors) != len(newChunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(newChunks))
	}

	if err := c.writeWithRetry(newIDs, newChunks, vectors); err != nil {
		return err
	}

	for i, id := range newIDs {
		c.entries[id] = entry{vector: vectors[i], chunk: cacheChunk(id, newChunks[i])}
	}
	return nil
}

func cacheChunk(id string, ch domain.Chunk) domain.Chunk {
	meta := make(map[string]string, len(ch.Metadata)+1)
	for k, v := range ch.Metadata {
		meta[k] = v
	}
	meta["id"] = id
	ch.Metadata = meta
	return ch
}

func (c *Collection) writeWithRetry(ids []string, chunks []domain.Chunk, vectors [][]float32) error {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
		}
		lastErr = c.write(ids, chunks, vectors)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("write to collection %s failed after %d attempts: %w", c.name, writeAttempts, lastErr)
}

func (c *Collection) write(ids []string, chunks []domain.Chunk, vectors [][]float32) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("entries bucket not found")
		}
		for i, id := range ids {
			data, err := json.Marshal(storedEntry{
				Vector: vectors[i],
				Chunk:  chunkToPayload(chunks[i]),
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddWithRecreate behaves like Add, but when the additive write cannot
// succeed it destroys the existing collection and repopulates it from the
// given chunk set alone. Chunks from earlier batches are lost; this is the
// opt-in fallback for "never fail an ingestion silently" and is announced
// on stderr before it runs.
func (c *Collection) AddWithRecreate(chunks []domain.Chunk) error {
	err := c.Add(chunks)
	if err == nil {
		return nil
	}

	fmt.Fprintf(os.Stderr,
		"warning: additive write to collection %q failed (%v); recreating collection, previously stored batches will be dropped\n",
		c.name, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return fmt.Errorf("collection %s is closed", c.name)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, embErr := c.embedder.Embed(texts)
	if embErr != nil {
		return fmt.Errorf("recreate failed to embed chunks: %w", embErr)
	}

	ids := EntryIDs(chunks)
	wipeErr := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}
		for i, id := range ids {
			data, err := json.Marshal(storedEntry{Vector: vectors[i], Chunk: chunkToPayload(chunks[i])})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if wipeErr != nil {
		return fmt.Errorf("recreate of collection %s failed: %w", c.name, wipeErr)
	}

	c.entries = make(map[string]entry, len(ids))
	for i, id := range ids {
		c.entries[id] = entry{vector: vectors[i], chunk: cacheChunk(id, chunks[i])}
	}
	return nil
}

// Search embeds the query with the ingestion embedder and returns the k
// nearest entries by cosine similarity, best first.
func (c *Collection) Search(query string, k int) ([]domain.ScoredChunk, error) {
	vectors, err := c.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	queryVec := vectors[0]

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, 0, len(c.entries))
	for _, e := range c.entries {
		scored = append(scored, domain.ScoredChunk{
			Chunk: e.chunk,
			Score: cosineSimilarity(queryVec, e.vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Metadata["id"] < scored[j].Chunk.Metadata["id"]
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Exists reports whether the collection file is on disk and holds at least
// one entry.
func (c *Collection) Exists() bool {
	if _, err := os.Stat(c.path); err != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries) > 0
}

// Stats returns chunk count, embedding dimension and a few sample entries.
func (c *Collection) Stats() (domain.CollectionStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := domain.CollectionStats{
		TotalChunks:    len(c.entries),
		EmbeddingDim:   c.embedder.Dimension(),
		EmbeddingModel: c.embedder.ModelName(),
	}

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if len(stats.SampleIDs) == 3 {
			break
		}
		stats.SampleIDs = append(stats.SampleIDs, id)
		stats.SampleMetadata = append(stats.SampleMetadata, c.entries[id].chunk.Metadata)
	}

	if len(stats.SampleMetadata) > 0 {
		for field := range stats.SampleMetadata[0] {
			stats.MetadataFields = append(stats.MetadataFields, field)
		}
		sort.Strings(stats.MetadataFields)
	}

	return stats, nil
}

// Delete removes entries by id, best effort, and flushes to disk.
func (c *Collection) Delete(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return fmt.Errorf("collection %s is closed", c.name)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(c.entries, id)
		}
		return nil
	})
}

// Contents returns a snapshot of all stored chunks in stable (id) order.
func (c *Collection) Contents() ([]domain.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, c.entries[id].chunk)
	}
	return chunks, nil
}

// Clear irreversibly wipes the persisted collection. The database file may
// be locked by a concurrently running process, so removal is retried with
// exponential backoff before escalating to a forced removal.
func (c *Collection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	c.entries = make(map[string]entry)

	var lastErr error
	for attempt := 0; attempt < removeAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
		}
		lastErr = os.Remove(c.path)
		if lastErr == nil || os.IsNotExist(lastErr) {
			return nil
		}
	}

	// Escalate: forced removal of the collection file.
	if err := os.RemoveAll(c.path); err == nil {
		return nil
	}
	return fmt.Errorf("failed to remove collection %s after %d attempts: %w", c.name, removeAttempts, lastErr)
}

func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Path returns the collection's database file path.
func (c *Collection) Path() string {
	return c.path
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
