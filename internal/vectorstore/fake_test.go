package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/docqa/internal/index"
)

// fakeIndex is an in-memory index.Client for tests. Failure fields make the
// corresponding call return that error; call counters let tests assert on
// how the store was driven.
type fakeIndex struct {
	mu      sync.Mutex
	indexes map[string][]index.Entry

	failList      error
	failCreate    error
	failStats     error
	failUpsert    error
	failQuery     error
	failDelete    error
	failDeleteAll error

	createCalls    int
	queryCalls     int
	deleteAllCalls int
	deleteBatches  [][]string
}

func newFakeIndex(names ...string) *fakeIndex {
	f := &fakeIndex{indexes: make(map[string][]index.Entry)}
	for _, n := range names {
		f.indexes[n] = nil
	}
	return f
}

func (f *fakeIndex) add(indexName string, entries ...index.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[indexName] = append(f.indexes[indexName], entries...)
}

func (f *fakeIndex) count(indexName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.indexes[indexName])
}

func (f *fakeIndex) ListIndexes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	names := make([]string, 0, len(f.indexes))
	for n := range f.indexes {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeIndex) CreateIndex(ctx context.Context, spec index.Spec) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	if _, ok := f.indexes[spec.Name]; ok {
		return fmt.Errorf("index %q already exists", spec.Name)
	}
	f.indexes[spec.Name] = nil
	return nil
}

func (f *fakeIndex) DescribeStats(ctx context.Context, indexName string) (index.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStats != nil {
		return index.Stats{}, f.failStats
	}
	entries, ok := f.indexes[indexName]
	if !ok {
		return index.Stats{}, index.ErrIndexNotFound
	}
	return index.Stats{TotalVectorCount: len(entries)}, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, indexName string, entries []index.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.indexes[indexName] = append(f.indexes[indexName], entries...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, indexName string, q index.Query) ([]index.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failQuery != nil {
		return nil, f.failQuery
	}

	var matches []index.Match
	for _, e := range f.indexes[indexName] {
		if !filterMatches(q.Filter, e.Metadata) {
			continue
		}
		m := index.Match{ID: e.ID, Score: dot(q.Vector, e.Vector)}
		if q.IncludeMetadata {
			m.Metadata = e.Metadata
		}
		matches = append(matches, m)
		if q.TopK > 0 && len(matches) == q.TopK {
			break
		}
	}
	return matches, nil
}

func (f *fakeIndex) Delete(ctx context.Context, indexName string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	batch := make([]string, len(ids))
	copy(batch, ids)
	f.deleteBatches = append(f.deleteBatches, batch)

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := f.indexes[indexName][:0]
	for _, e := range f.indexes[indexName] {
		if _, gone := drop[e.ID]; !gone {
			kept = append(kept, e)
		}
	}
	f.indexes[indexName] = kept
	return nil
}

func (f *fakeIndex) DeleteAll(ctx context.Context, indexName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAllCalls++
	if f.failDeleteAll != nil {
		return f.failDeleteAll
	}
	f.indexes[indexName] = nil
	return nil
}

func (f *fakeIndex) Close() error { return nil }

func filterMatches(filter index.Filter, metadata map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// fakeEmbedder produces deterministic vectors of the given dimension. The
// first component encodes the text length so similarity ordering is
// predictable in tests.
type fakeEmbedder struct {
	dimension int
	failDocs  error
	failQuery error
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.failDocs != nil {
		return nil, e.failDocs
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.embed(t)
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.failQuery != nil {
		return nil, e.failQuery
	}
	return e.embed(text), nil
}

func (e *fakeEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dimension)
	if e.dimension > 0 {
		v[0] = float32(len(text))
	}
	return v
}

// entry builds a stored index entry with ownership metadata.
func entry(id, text, filename, username string, dimension int) index.Entry {
	return index.Entry{
		ID:     id,
		Vector: make([]float32, dimension),
		Metadata: map[string]string{
			TextKey:       text,
			FilenameKey:   filename,
			UploadedAtKey: "2026-01-02T15:04:05Z",
			UsernameKey:   username,
			UserIDKey:     "1",
		},
	}
}
