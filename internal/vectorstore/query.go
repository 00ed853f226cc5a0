package vectorstore

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// Engine issues scoped queries against the index: similarity retrieval under
// username/filename constraints and distinct-filename enumeration.
//
// The remote store offers no native "list distinct metadata values"
// operation, so enumeration is simulated with an oversized similarity query
// using a zero vector. Its correctness is bounded by the result cap: entries
// beyond the cap are silently omitted. That is a documented approximation,
// not a bug.
type Engine struct {
	client    index.Client
	indexName string
	embedder  Embedder
	cache     *EnumerationCache
	logger    *logging.Logger

	dimension      int
	enumerationCap int
	defaultTopK    int
}

// EngineConfig configures a query Engine.
type EngineConfig struct {
	IndexName      string
	Dimension      int
	EnumerationCap int

	// DefaultTopK is the similarity result count used when a retriever is
	// built without an explicit k.
	DefaultTopK int
}

// NewEngine creates an Engine. The cache is injected rather than owned so
// the caller controls invalidation after mutations.
func NewEngine(cfg EngineConfig, client index.Client, embedder Embedder, cache *EnumerationCache, logger *logging.Logger) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 4
	}
	return &Engine{
		client:         client,
		indexName:      cfg.IndexName,
		embedder:       embedder,
		cache:          cache,
		logger:         logger.Named("query"),
		dimension:      cfg.Dimension,
		enumerationCap: cfg.EnumerationCap,
		defaultTopK:    cfg.DefaultTopK,
	}
}

// EnumerateFilenames returns the sorted distinct filenames visible to
// username ("" enumerates all scoped entries). Results are served from the
// enumeration cache; callers must invalidate after mutations or a prior
// cached result will not reflect them.
func (e *Engine) EnumerateFilenames(ctx context.Context, username string) ([]string, error) {
	return e.cache.GetOrCompute(ctx, username, func(ctx context.Context) ([]string, error) {
		return e.enumerateFilenames(ctx, username)
	})
}

func (e *Engine) enumerateFilenames(ctx context.Context, username string) ([]string, error) {
	start := time.Now()

	matches, err := e.client.Query(ctx, e.indexName, index.Query{
		Vector:          e.zeroVector(),
		TopK:            e.enumerationCap,
		Filter:          usernameFilter(username),
		IncludeMetadata: true,
	})
	if err != nil {
		observeOperation("enumerate", start, err)
		return nil, &QueryError{Op: "enumerating filenames", Err: err}
	}

	seen := make(map[string]struct{})
	scope := Scope{Username: username}
	for _, m := range matches {
		filename, ok := m.Metadata[FilenameKey]
		if !ok || filename == "" {
			// Pre-schema entry without ownership metadata: unscoped.
			continue
		}
		if !scope.Matches(m.Metadata) {
			continue
		}
		seen[filename] = struct{}{}
	}

	filenames := make([]string, 0, len(seen))
	for f := range seen {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)

	observeOperation("enumerate", start, nil)
	e.logger.Debug(ctx, "enumerated filenames",
		zap.String("username", username),
		zap.Int("matches", len(matches)),
		zap.Int("distinct", len(filenames)),
	)
	return filenames, nil
}

// EnumerateIDs returns up to the enumeration cap of entry ids visible to
// username ("" = every entry). Used by the deletion controller.
func (e *Engine) EnumerateIDs(ctx context.Context, username string) ([]string, error) {
	matches, err := e.client.Query(ctx, e.indexName, index.Query{
		Vector:          e.zeroVector(),
		TopK:            e.enumerationCap,
		Filter:          usernameFilter(username),
		IncludeMetadata: username != "",
	})
	if err != nil {
		return nil, &QueryError{Op: "enumerating entry ids", Err: err}
	}

	scope := Scope{Username: username}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if username != "" && !scope.Matches(m.Metadata) {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// HasData reports whether any entry is visible to username ("" checks the
// whole index via stats).
func (e *Engine) HasData(ctx context.Context, username string) (bool, error) {
	if username == "" {
		stats, err := e.client.DescribeStats(ctx, e.indexName)
		if err != nil {
			return false, &QueryError{Op: "reading index stats", Err: err}
		}
		return stats.TotalVectorCount > 0, nil
	}

	matches, err := e.client.Query(ctx, e.indexName, index.Query{
		Vector:          e.zeroVector(),
		TopK:            1,
		Filter:          usernameFilter(username),
		IncludeMetadata: false,
	})
	if err != nil {
		return false, &QueryError{Op: "checking user data", Err: err}
	}
	return len(matches) > 0, nil
}

// Retrieve embeds the query and returns the most similar chunks within
// scope. The username constraint is pushed down to the store natively where
// set; the in-process post-filter on the full scope remains the correctness
// backstop regardless of what the store honored.
func (e *Engine) Retrieve(ctx context.Context, query string, scope Scope, k int) ([]Result, error) {
	return e.NewRetriever(scope, k).Retrieve(ctx, query)
}

// NewRetriever builds a Retriever for the given scope: a base similarity
// retriever with native username pushdown, wrapped in a FilteringRetriever
// enforcing the full scope. k <= 0 uses the engine default.
func (e *Engine) NewRetriever(scope Scope, k int) Retriever {
	if k <= 0 {
		k = e.defaultTopK
	}
	base := &baseRetriever{
		engine: e,
		filter: usernameFilter(scope.Username),
		topK:   k,
	}
	return NewFilteringRetriever(base, scope)
}

// baseRetriever performs raw similarity retrieval with an optional native
// store filter. It applies no post-filtering of its own.
type baseRetriever struct {
	engine *Engine
	filter index.Filter
	topK   int
}

func (r *baseRetriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	start := time.Now()

	vector, err := r.engine.embedder.EmbedQuery(ctx, query)
	if err != nil {
		observeOperation("retrieve", start, err)
		return nil, &QueryError{Op: "embedding query", Err: err}
	}

	matches, err := r.engine.client.Query(ctx, r.engine.indexName, index.Query{
		Vector:          vector,
		TopK:            r.topK,
		Filter:          r.filter,
		IncludeMetadata: true,
	})
	if err != nil {
		observeOperation("retrieve", start, err)
		return nil, &QueryError{Op: "similarity query", Err: err}
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ID:       m.ID,
			Text:     m.Metadata[TextKey],
			Filename: m.Metadata[FilenameKey],
			Username: m.Metadata[UsernameKey],
			Score:    m.Score,
		}
	}

	observeOperation("retrieve", start, nil)
	return results, nil
}

// FilteringRetriever decorates a base Retriever with an in-process scope
// post-filter. It guarantees every returned result satisfies the scope even
// when the base retriever applied no (or partial) native filtering.
type FilteringRetriever struct {
	base  Retriever
	scope Scope
}

// NewFilteringRetriever wraps base with a scope post-filter.
func NewFilteringRetriever(base Retriever, scope Scope) *FilteringRetriever {
	return &FilteringRetriever{base: base, scope: scope}
}

// Retrieve delegates to the base retriever and drops results outside scope,
// preserving the base ordering.
func (r *FilteringRetriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	results, err := r.base.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if r.scope.IsZero() {
		return results, nil
	}

	filtered := results[:0:0]
	for _, res := range results {
		if r.matches(res) {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

func (r *FilteringRetriever) matches(res Result) bool {
	if r.scope.Username != "" && res.Username != r.scope.Username {
		return false
	}
	if r.scope.Filename != "" && res.Filename != r.scope.Filename {
		return false
	}
	return true
}

// zeroVector returns a neutral query vector for metadata enumeration.
func (e *Engine) zeroVector() []float32 {
	return make([]float32, e.dimension)
}

// usernameFilter returns a native equality filter, or nil for "".
func usernameFilter(username string) index.Filter {
	if username == "" {
		return nil
	}
	return index.Filter{UsernameKey: username}
}
