package docdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Create(domain.DocumentRecord{
		Path:     "/docs/a.txt",
		Name:     "a.txt",
		Type:     "txt",
		Size:     1234,
		Metadata: map[string]string{"batch_id": "b1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.StatusPending, rec.Status)

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/a.txt", got.Path)
	assert.Equal(t, int64(1234), got.Size)
	assert.Equal(t, "b1", got.Metadata["batch_id"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateReplacesExistingPath(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Create(domain.DocumentRecord{Path: "/docs/a.txt", Name: "a.txt", Type: "txt"})
	require.NoError(t, err)
	second, err := store.Create(domain.DocumentRecord{Path: "/docs/a.txt", Name: "a.txt", Type: "txt"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	records, err := store.List()
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)
}

func TestStatusTransitions(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Create(domain.DocumentRecord{Path: "/docs/a.txt", Name: "a.txt", Type: "txt"})
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(rec.ID, domain.StatusProcessed, 0))
	require.NoError(t, store.SetStatus(rec.ID, domain.StatusIndexed, 7))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, got.Status)
	assert.Equal(t, 7, got.ChunkCount)
}

func TestMarkError(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Create(domain.DocumentRecord{Path: "/docs/a.txt", Name: "a.txt", Type: "txt"})
	require.NoError(t, err)
	require.NoError(t, store.MarkError(rec.ID, "parse failed"))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, "parse failed", got.Error)
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByPath("/docs/nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.SetStatus("nope", domain.StatusIndexed, 1), ErrNotFound)
	assert.ErrorIs(t, store.MarkError("nope", "x"), ErrNotFound)
}

func TestGetByPath(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Create(domain.DocumentRecord{Path: "/docs/b.txt", Name: "b.txt", Type: "txt"})
	require.NoError(t, err)

	got, err := store.GetByPath("/docs/b.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	rec, err := store.Create(domain.DocumentRecord{Path: "/docs/a.txt", Name: "a.txt", Type: "txt"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(rec.ID))

	_, err = store.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderedByCreation(t *testing.T) {
	store := openTestStore(t)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := store.Create(domain.DocumentRecord{Path: "/docs/" + name, Name: name, Type: "txt"})
		require.NoError(t, err)
	}

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
}
