package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqa/internal/logging"
)

func TestIngestRejectsEmptyInput(t *testing.T) {
	fake := newFakeIndex("docqa")
	ing := NewIngestor(fake, "docqa", 4, &fakeEmbedder{dimension: 4}, logging.NewTestLogger().Logger)

	_, err := ing.Ingest(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoChunks)
	assert.Zero(t, fake.count("docqa"))
}

func TestIngestStampsOwnershipMetadata(t *testing.T) {
	fake := newFakeIndex("docqa")
	ing := NewIngestor(fake, "docqa", 4, &fakeEmbedder{dimension: 4}, logging.NewTestLogger().Logger)
	ing.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	chunks := []Chunk{
		{Text: "first chunk", Filename: "report.pdf", Username: "alice", UserID: 7},
		{Text: "second chunk", Filename: "report.pdf", Username: "alice", UserID: 7},
	}
	count, err := ing.Ingest(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored := fake.indexes["docqa"]
	require.Len(t, stored, 2)
	for i, e := range stored {
		assert.NotEmpty(t, e.ID)
		assert.Len(t, e.Vector, 4)
		assert.Equal(t, chunks[i].Text, e.Metadata[TextKey])
		assert.Equal(t, "report.pdf", e.Metadata[FilenameKey])
		assert.Equal(t, "alice", e.Metadata[UsernameKey])
		assert.Equal(t, "7", e.Metadata[UserIDKey])
		assert.Equal(t, "2026-03-14T09:26:53Z", e.Metadata[UploadedAtKey])
	}
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	fake := newFakeIndex("docqa")
	embedder := &fakeEmbedder{dimension: 4, failDocs: errors.New("rate limited")}
	ing := NewIngestor(fake, "docqa", 4, embedder, logging.NewTestLogger().Logger)

	_, err := ing.Ingest(context.Background(), []Chunk{{Text: "x", Filename: "a.pdf", Username: "alice"}})
	require.Error(t, err)

	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Zero(t, fake.count("docqa"), "nothing stored on embedding failure")
}

func TestIngestDimensionMismatch(t *testing.T) {
	fake := newFakeIndex("docqa")
	// Embedder dimension disagrees with the index dimension.
	ing := NewIngestor(fake, "docqa", 1536, &fakeEmbedder{dimension: 8}, logging.NewTestLogger().Logger)

	_, err := ing.Ingest(context.Background(), []Chunk{{Text: "x", Filename: "a.pdf", Username: "alice"}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Zero(t, fake.count("docqa"))
}

func TestIngestUpsertFailure(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.failUpsert = errors.New("deadline exceeded")
	ing := NewIngestor(fake, "docqa", 4, &fakeEmbedder{dimension: 4}, logging.NewTestLogger().Logger)

	_, err := ing.Ingest(context.Background(), []Chunk{{Text: "x", Filename: "a.pdf", Username: "alice"}})
	require.Error(t, err)

	var storErr *StorageError
	require.ErrorAs(t, err, &storErr)
}
