package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqa/internal/logging"
)

func newTestManager(fake *fakeIndex) *Manager {
	return NewManager(Config{
		Spec:            testSpec(),
		EnumerationCap:  10000,
		DeleteBatchSize: 1000,
		DefaultTopK:     4,
	}, fake, &fakeEmbedder{dimension: 4}, logging.NewTestLogger().Logger)
}

func TestManagerIngestInvalidatesEnumeration(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa", entry("1", "t1", "old.pdf", "alice", 4))
	m := newTestManager(fake)
	ctx := context.Background()

	before, err := m.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, before)

	_, err = m.Ingest(ctx, []Chunk{{Text: "x", Filename: "new.pdf", Username: "alice", UserID: 1}})
	require.NoError(t, err)

	after, err := m.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"new.pdf", "old.pdf"}, after, "ingest must be visible to the next enumeration")
}

func TestManagerDeleteForUserInvalidatesEnumeration(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "a.pdf", "alice", 4),
		entry("2", "t2", "b.pdf", "bob", 4),
	)
	m := newTestManager(fake)
	ctx := context.Background()

	_, err := m.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	_, err = m.EnumerateFilenames(ctx, "")
	require.NoError(t, err)

	_, err = m.DeleteForUser(ctx, "alice")
	require.NoError(t, err)

	aliceFiles, err := m.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, aliceFiles)

	allFiles, err := m.EnumerateFilenames(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, allFiles)
}

func TestManagerDeleteAllInvalidatesEveryScope(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "a.pdf", "alice", 4),
		entry("2", "t2", "b.pdf", "bob", 4),
	)
	m := newTestManager(fake)
	ctx := context.Background()

	for _, user := range []string{"", "alice", "bob"} {
		_, err := m.EnumerateFilenames(ctx, user)
		require.NoError(t, err)
	}

	outcome, err := m.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Deleted)

	for _, user := range []string{"", "alice", "bob"} {
		files, err := m.EnumerateFilenames(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, files)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	fake := newFakeIndex()
	m := newTestManager(fake)
	ctx := context.Background()

	outcome, err := m.EnsureIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, IndexCreated, outcome)

	count, err := m.Ingest(ctx, []Chunk{
		{Text: "alpha", Filename: "doc.pdf", Username: "alice", UserID: 1},
		{Text: "beta", Filename: "doc.pdf", Username: "alice", UserID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	has, err := m.HasData(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, has)

	results, err := m.Retrieve(ctx, "alpha", Scope{Username: "alice"}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVectorCount)
}
