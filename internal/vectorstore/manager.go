package vectorstore

import (
	"context"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// Config holds the settings a Manager needs beyond its collaborators.
type Config struct {
	// Spec describes the index to ensure and write to.
	Spec index.Spec

	// EnumerationCap bounds how many entries one enumeration query returns.
	EnumerationCap int

	// DeleteBatchSize bounds each id-based delete call.
	DeleteBatchSize int

	// DefaultTopK is the similarity result count when callers pass k <= 0.
	DefaultTopK int
}

// Manager is the facade over the provisioner, ingestor, query engine, and
// deletion controller, sharing one index client, embedder, and enumeration
// cache. Mutating operations invalidate the cache scopes they affect.
type Manager struct {
	provisioner *Provisioner
	ingestor    *Ingestor
	engine      *Engine
	deleter     *DeletionController
	cache       *EnumerationCache
	client      index.Client
	indexName   string
}

// NewManager wires the vector store components together.
func NewManager(cfg Config, client index.Client, embedder Embedder, logger *logging.Logger) *Manager {
	cache := NewEnumerationCache()
	engine := NewEngine(EngineConfig{
		IndexName:      cfg.Spec.Name,
		Dimension:      cfg.Spec.Dimension,
		EnumerationCap: cfg.EnumerationCap,
		DefaultTopK:    cfg.DefaultTopK,
	}, client, embedder, cache, logger)

	return &Manager{
		provisioner: NewProvisioner(client, cfg.Spec, logger),
		ingestor:    NewIngestor(client, cfg.Spec.Name, cfg.Spec.Dimension, embedder, logger),
		engine:      engine,
		deleter:     NewDeletionController(client, engine, cfg.Spec.Name, cfg.DeleteBatchSize, logger),
		cache:       cache,
		client:      client,
		indexName:   cfg.Spec.Name,
	}
}

// EnsureIndex provisions the index if absent.
func (m *Manager) EnsureIndex(ctx context.Context) (EnsureOutcome, error) {
	return m.provisioner.EnsureIndex(ctx)
}

// Ingest stores the chunks and invalidates the owner's cached enumeration
// plus the unscoped one.
func (m *Manager) Ingest(ctx context.Context, chunks []Chunk) (int, error) {
	count, err := m.ingestor.Ingest(ctx, chunks)
	if err != nil {
		return count, err
	}
	m.cache.Invalidate(chunks[0].Username)
	m.cache.Invalidate("")
	return count, nil
}

// EnumerateFilenames lists the sorted distinct filenames visible to
// username, served from cache when available.
func (m *Manager) EnumerateFilenames(ctx context.Context, username string) ([]string, error) {
	return m.engine.EnumerateFilenames(ctx, username)
}

// HasData reports whether any entry is visible to username.
func (m *Manager) HasData(ctx context.Context, username string) (bool, error) {
	return m.engine.HasData(ctx, username)
}

// Retrieve returns the k most similar chunks to query within scope.
func (m *Manager) Retrieve(ctx context.Context, query string, scope Scope, k int) ([]Result, error) {
	return m.engine.Retrieve(ctx, query, scope, k)
}

// NewRetriever builds a scope-enforcing Retriever for downstream consumers.
func (m *Manager) NewRetriever(scope Scope, k int) Retriever {
	return m.engine.NewRetriever(scope, k)
}

// DeleteAll removes every entry and drops all cached enumerations.
func (m *Manager) DeleteAll(ctx context.Context) (DeleteOutcome, error) {
	outcome, err := m.deleter.DeleteAll(ctx)
	m.cache.InvalidateAll()
	return outcome, err
}

// DeleteForUser removes username's entries and drops their cached
// enumeration plus the unscoped one.
func (m *Manager) DeleteForUser(ctx context.Context, username string) (DeleteOutcome, error) {
	outcome, err := m.deleter.DeleteForUser(ctx, username)
	m.cache.Invalidate(username)
	m.cache.Invalidate("")
	return outcome, err
}

// Stats returns the index entry count and dimension.
func (m *Manager) Stats(ctx context.Context) (index.Stats, error) {
	return m.client.DescribeStats(ctx, m.indexName)
}

// InvalidateEnumeration drops the cached enumeration for username.
func (m *Manager) InvalidateEnumeration(username string) {
	m.cache.Invalidate(username)
}

// InvalidateAllEnumerations drops every cached enumeration.
func (m *Manager) InvalidateAllEnumerations() {
	m.cache.InvalidateAll()
}
