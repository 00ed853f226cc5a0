package vectorstore

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoChunks indicates an ingest call with no chunks.
	ErrNoChunks = errors.New("no chunks to ingest")

	// ErrDimensionMismatch indicates an embedding whose size does not match
	// the configured index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ProvisioningError indicates index creation or lookup failure.
type ProvisioningError struct {
	Index string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning index %q: %v", e.Index, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// EmbeddingError indicates an upstream embedding call failure.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("generating embeddings: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// QueryError indicates a query, enumeration, or retrieval failure. Callers
// must not assume zero results means no error.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// StorageError indicates a failed write of embedded entries to the index.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing entries: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DeletionError indicates a delete call failure. Partial success (a nonzero
// remainder after deletion) is reported as data in DeleteOutcome, not as an
// error, because eventually-consistent stores may show stale counts.
type DeletionError struct {
	Op  string
	Err error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }
