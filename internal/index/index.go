// Package index defines the client interface to the remote vector index.
//
// The interface mirrors the operations a managed vector service exposes:
// index lifecycle by name, stats, batched upsert, filtered similarity query,
// and deletion by id list or in bulk. Implementations are transport-specific;
// see QdrantClient for the gRPC-backed one.
package index

import (
	"context"
	"errors"
)

// Sentinel errors for index operations.
var (
	// ErrIndexNotFound is returned when an index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates transport-level connection issues.
	ErrConnectionFailed = errors.New("failed to connect to vector index")
)

// Spec describes an index to create.
//
// Cloud and Region are placement hints honored by managed deployments;
// self-hosted backends may ignore them.
type Spec struct {
	Name      string
	Dimension int
	Metric    string // cosine, dot, or euclidean
	Cloud     string
	Region    string
}

// Stats summarizes an index.
type Stats struct {
	// TotalVectorCount is the number of stored entries. Immediately after a
	// deletion an eventually-consistent backend may report a stale count.
	TotalVectorCount int

	// Dimension is the vector dimensionality of the index.
	Dimension int
}

// Entry is one stored (vector, metadata) pair.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one query result.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter is a conjunction of metadata equality conditions.
// A nil or empty filter matches every entry.
type Filter map[string]string

// Query describes a similarity query against an index.
type Query struct {
	// Vector is the query embedding. A zero vector is legal and used for
	// metadata enumeration rather than semantic ranking.
	Vector []float32

	// TopK caps the number of matches returned.
	TopK int

	// Filter restricts matches to entries whose metadata satisfies every
	// equality condition.
	Filter Filter

	// IncludeMetadata requests entry metadata alongside ids and scores.
	IncludeMetadata bool
}

// Client is the interface to the remote vector index.
//
// All methods are blocking remote calls; implementations must bound every
// call with a timeout and surface transport failures as errors, never as
// empty results.
type Client interface {
	// ListIndexes returns the names of all indexes.
	ListIndexes(ctx context.Context) ([]string, error)

	// CreateIndex creates a new index. Returns an error if an index with the
	// same name already exists.
	CreateIndex(ctx context.Context, spec Spec) error

	// DescribeStats returns entry counts for the named index.
	DescribeStats(ctx context.Context, name string) (Stats, error)

	// Upsert writes entries to the named index in one batched call.
	Upsert(ctx context.Context, name string, entries []Entry) error

	// Query performs a similarity query and returns matches ordered by score.
	Query(ctx context.Context, name string, q Query) ([]Match, error)

	// Delete removes the entries with the given ids.
	Delete(ctx context.Context, name string, ids []string) error

	// DeleteAll removes every entry in the named index in one call.
	// Not every backend supports this; unsupported backends return an error
	// and callers fall back to id-based deletion.
	DeleteAll(ctx context.Context, name string) error

	// Close releases the client connection.
	Close() error
}
