// Package vectorstore implements the scoped access layer over the remote
// vector index: ownership tagging of stored chunks, filtered querying,
// per-user filename enumeration with caching, and bulk/scoped deletion.
package vectorstore

import "context"

// Metadata keys stamped onto every stored entry.
//
// Entries written before this schema existed may lack FilenameKey or
// UsernameKey; such entries are treated as unscoped and are excluded from
// per-user enumeration and scoped retrieval.
const (
	// TextKey holds the chunk content so retrieval can reconstruct chunks
	// without a secondary document store.
	TextKey = "text"

	// FilenameKey holds the source document filename.
	FilenameKey = "filename"

	// UploadedAtKey holds the ingestion wall-clock time in ISO-8601.
	UploadedAtKey = "uploaded_at"

	// UsernameKey holds the owning user's username.
	UsernameKey = "username"

	// UserIDKey holds the owning user's numeric id, as a decimal string.
	UserIDKey = "user_id"
)

// Chunk is a unit of document text plus provenance, produced by the
// document processing layer and consumed by the Ingestor.
type Chunk struct {
	Text     string
	Filename string
	Username string
	UserID   int64
}

// Result is one retrieved chunk with its provenance and similarity score.
type Result struct {
	ID       string
	Text     string
	Filename string
	Username string
	Score    float32
}

// Scope restricts which entries a query may see. Zero-value fields are
// unconstrained; set fields require metadata equality.
type Scope struct {
	Username string
	Filename string
}

// IsZero reports whether the scope places no constraints.
func (s Scope) IsZero() bool {
	return s.Username == "" && s.Filename == ""
}

// Matches reports whether entry metadata satisfies every set constraint.
// Entries missing a constrained key never match: absent ownership metadata
// must not leak into scoped results.
func (s Scope) Matches(metadata map[string]string) bool {
	if s.Username != "" && metadata[UsernameKey] != s.Username {
		return false
	}
	if s.Filename != "" && metadata[FilenameKey] != s.Filename {
		return false
	}
	return true
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns results relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Result, error)
}
