package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

func newTestEngine(fake *fakeIndex, enumCap int) *Engine {
	return NewEngine(EngineConfig{
		IndexName:      "docqa",
		Dimension:      4,
		EnumerationCap: enumCap,
		DefaultTopK:    4,
	}, fake, &fakeEmbedder{dimension: 4}, NewEnumerationCache(), logging.NewTestLogger().Logger)
}

func TestEnumerateFilenamesDistinctAndSorted(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "zebra.pdf", "alice", 4),
		entry("2", "t2", "alpha.pdf", "alice", 4),
		entry("3", "t3", "zebra.pdf", "alice", 4),
		entry("4", "t4", "midway.pdf", "alice", 4),
	)
	engine := newTestEngine(fake, 100)

	got, err := engine.EnumerateFilenames(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.pdf", "midway.pdf", "zebra.pdf"}, got)
}

func TestEnumerateFilenamesScopedToUser(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "alice.pdf", "alice", 4),
		entry("2", "t2", "bob.pdf", "bob", 4),
	)
	engine := newTestEngine(fake, 100)
	ctx := context.Background()

	aliceFiles, err := engine.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice.pdf"}, aliceFiles)

	allFiles, err := engine.EnumerateFilenames(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice.pdf", "bob.pdf"}, allFiles)
}

func TestEnumerateFilenamesSkipsEntriesWithoutFilename(t *testing.T) {
	fake := newFakeIndex("docqa")
	bare := index.Entry{ID: "legacy", Vector: make([]float32, 4), Metadata: map[string]string{TextKey: "old"}}
	fake.add("docqa", bare, entry("1", "t1", "new.pdf", "alice", 4))
	engine := newTestEngine(fake, 100)

	got, err := engine.EnumerateFilenames(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new.pdf"}, got)
}

func TestEnumerateFilenamesBoundedByCap(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "a.pdf", "alice", 4),
		entry("2", "t2", "b.pdf", "alice", 4),
		entry("3", "t3", "c.pdf", "alice", 4),
	)
	engine := newTestEngine(fake, 2)

	got, err := engine.EnumerateFilenames(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, got, 2, "entries beyond the cap are omitted")
}

func TestEnumerateFilenamesUsesCache(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa", entry("1", "t1", "a.pdf", "alice", 4))
	engine := newTestEngine(fake, 100)
	ctx := context.Background()

	_, err := engine.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	queriesAfterFirst := fake.queryCalls

	_, err = engine.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, queriesAfterFirst, fake.queryCalls, "second call served from cache")

	engine.cache.Invalidate("alice")
	_, err = engine.EnumerateFilenames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, queriesAfterFirst+1, fake.queryCalls)
}

func TestEnumerateFilenamesWrapsQueryFailure(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.failQuery = errors.New("unavailable")
	engine := newTestEngine(fake, 100)

	_, err := engine.EnumerateFilenames(context.Background(), "alice")
	require.Error(t, err)

	var qErr *QueryError
	require.ErrorAs(t, err, &qErr)
}

func TestRetrieveScopedToUsername(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "alice text", "a.pdf", "alice", 4),
		entry("2", "bob text", "b.pdf", "bob", 4),
	)
	engine := newTestEngine(fake, 100)

	results, err := engine.Retrieve(context.Background(), "question", Scope{Username: "alice"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice text", results[0].Text)
	assert.Equal(t, "alice", results[0].Username)
}

func TestRetrieveScopedToFilename(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "report body", "report.pdf", "alice", 4),
		entry("2", "notes body", "notes.pdf", "alice", 4),
	)
	engine := newTestEngine(fake, 100)

	results, err := engine.Retrieve(context.Background(), "question", Scope{Username: "alice", Filename: "report.pdf"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "report.pdf", results[0].Filename)
}

func TestRetrieveUnscopedReturnsEverything(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa",
		entry("1", "t1", "a.pdf", "alice", 4),
		entry("2", "t2", "b.pdf", "bob", 4),
	)
	engine := newTestEngine(fake, 100)

	results, err := engine.Retrieve(context.Background(), "question", Scope{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	fake := newFakeIndex("docqa")
	engine := NewEngine(EngineConfig{IndexName: "docqa", Dimension: 4, EnumerationCap: 100},
		fake, &fakeEmbedder{dimension: 4, failQuery: errors.New("rate limited")},
		NewEnumerationCache(), logging.NewTestLogger().Logger)

	_, err := engine.Retrieve(context.Background(), "question", Scope{Username: "alice"}, 4)
	require.Error(t, err)

	var qErr *QueryError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "embedding query", qErr.Op)
}

func TestFilteringRetrieverDropsOutOfScopeResults(t *testing.T) {
	// A base retriever whose store ignored the native filter: the
	// post-filter must still enforce the scope.
	leaky := retrieverFunc(func(ctx context.Context, query string) ([]Result, error) {
		return []Result{
			{ID: "1", Text: "mine", Filename: "a.pdf", Username: "alice"},
			{ID: "2", Text: "not mine", Filename: "b.pdf", Username: "bob"},
			{ID: "3", Text: "also mine", Filename: "c.pdf", Username: "alice"},
		}, nil
	})

	tests := []struct {
		name    string
		scope   Scope
		wantIDs []string
	}{
		{"username scope", Scope{Username: "alice"}, []string{"1", "3"}},
		{"filename scope", Scope{Username: "alice", Filename: "c.pdf"}, []string{"3"}},
		{"no survivors", Scope{Username: "carol"}, nil},
		{"zero scope passes all", Scope{}, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFilteringRetriever(leaky, tt.scope)
			results, err := r.Retrieve(context.Background(), "q")
			require.NoError(t, err)

			var ids []string
			for _, res := range results {
				ids = append(ids, res.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

type retrieverFunc func(ctx context.Context, query string) ([]Result, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string) ([]Result, error) {
	return f(ctx, query)
}

func TestHasData(t *testing.T) {
	fake := newFakeIndex("docqa")
	fake.add("docqa", entry("1", "t1", "a.pdf", "alice", 4))
	engine := newTestEngine(fake, 100)
	ctx := context.Background()

	has, err := engine.HasData(ctx, "")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = engine.HasData(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = engine.HasData(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHasDataEmptyIndex(t *testing.T) {
	fake := newFakeIndex("docqa")
	engine := newTestEngine(fake, 100)

	has, err := engine.HasData(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, has)
}
