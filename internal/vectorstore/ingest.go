package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// Ingestor converts chunks into stored index entries: embeds every chunk
// text, stamps ownership metadata, and submits one batched write.
//
// Ingestion is best effort: the remote store gives no partial-commit
// guarantee, so a failed upsert may have written nothing or everything.
// The Ingestor never touches the enumeration cache; callers invalidate it
// after a successful ingest.
type Ingestor struct {
	client    index.Client
	indexName string
	embedder  Embedder
	dimension int
	logger    *logging.Logger

	// now is the ingestion clock, replaceable in tests.
	now func() time.Time
}

// NewIngestor creates an Ingestor writing to the named index.
func NewIngestor(client index.Client, indexName string, dimension int, embedder Embedder, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		client:    client,
		indexName: indexName,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger.Named("ingestor"),
		now:       time.Now,
	}
}

// Ingest embeds and stores the chunks, returning the number of entries
// written. Every entry carries filename, upload time, username, and user id
// so scoped queries and deletion can isolate it later.
func (i *Ingestor) Ingest(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}
	start := time.Now()

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		observeOperation("ingest", start, err)
		return 0, &EmbeddingError{Err: err}
	}
	if len(vectors) != len(chunks) {
		countErr := &EmbeddingError{Err: fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks))}
		observeOperation("ingest", start, countErr)
		return 0, countErr
	}

	uploadedAt := i.now().UTC().Format(time.RFC3339)

	entries := make([]index.Entry, len(chunks))
	for n, c := range chunks {
		if len(vectors[n]) != i.dimension {
			dimErr := &EmbeddingError{Err: fmt.Errorf("%w: got %d, index wants %d", ErrDimensionMismatch, len(vectors[n]), i.dimension)}
			observeOperation("ingest", start, dimErr)
			return 0, dimErr
		}
		entries[n] = index.Entry{
			ID:     uuid.NewString(),
			Vector: vectors[n],
			Metadata: map[string]string{
				TextKey:       c.Text,
				FilenameKey:   c.Filename,
				UploadedAtKey: uploadedAt,
				UsernameKey:   c.Username,
				UserIDKey:     strconv.FormatInt(c.UserID, 10),
			},
		}
	}

	if err := i.client.Upsert(ctx, i.indexName, entries); err != nil {
		observeOperation("ingest", start, err)
		return 0, &StorageError{Err: err}
	}
	observeOperation("ingest", start, nil)

	i.logger.Info(ctx, "ingested chunks",
		zap.Int("count", len(entries)),
		zap.String("filename", chunks[0].Filename),
		zap.String("username", chunks[0].Username),
	)
	return len(entries), nil
}
