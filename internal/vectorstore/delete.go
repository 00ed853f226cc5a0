package vectorstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// DeleteOutcome reports what a deletion accomplished as observed through
// index stats before and after. The remote store is eventually consistent,
// so Remaining > 0 right after a delete is data, not failure.
type DeleteOutcome struct {
	// Deleted is the stats-observed drop in entry count (before - after,
	// floored at zero).
	Deleted int

	// Remaining is the entry count observed after the deletion.
	Remaining int

	// Submitted is how many individual entry ids were sent for deletion.
	// Zero when the native bulk path succeeded without enumeration.
	Submitted int
}

// DeletionController removes entries from the index, either everything or a
// single user's data, verifying both paths through stats.
type DeletionController struct {
	client    index.Client
	engine    *Engine
	indexName string
	batchSize int
	logger    *logging.Logger
}

// NewDeletionController creates a controller. batchSize bounds each id-based
// delete call.
func NewDeletionController(client index.Client, engine *Engine, indexName string, batchSize int, logger *logging.Logger) *DeletionController {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &DeletionController{
		client:    client,
		engine:    engine,
		indexName: indexName,
		batchSize: batchSize,
		logger:    logger.Named("deletion"),
	}
}

// DeleteAll removes every entry in the index. It tries the native bulk
// delete first; if the store rejects it, it falls back to enumerating ids
// fresh and deleting them in batches. An empty index issues no delete call
// at all.
func (c *DeletionController) DeleteAll(ctx context.Context) (DeleteOutcome, error) {
	start := time.Now()

	before, err := c.count(ctx)
	if err != nil {
		observeOperation("delete_all", start, err)
		return DeleteOutcome{}, err
	}
	if before == 0 {
		observeOperation("delete_all", start, nil)
		return DeleteOutcome{}, nil
	}

	submitted := 0
	if err := c.client.DeleteAll(ctx, c.indexName); err != nil {
		c.logger.Warn(ctx, "bulk delete rejected, falling back to per-id deletion",
			zap.String("index", c.indexName),
			zap.Error(err),
		)
		// Enumerate fresh: the bulk attempt may have partially applied, and
		// a stale id list would double-delete or miss.
		ids, enumErr := c.engine.EnumerateIDs(ctx, "")
		if enumErr != nil {
			observeOperation("delete_all", start, enumErr)
			return DeleteOutcome{}, &DeletionError{Op: "enumerating for fallback delete", Err: enumErr}
		}
		if err := c.deleteBatches(ctx, ids); err != nil {
			observeOperation("delete_all", start, err)
			return DeleteOutcome{}, err
		}
		submitted = len(ids)
	}

	outcome, err := c.verify(ctx, before, submitted)
	observeOperation("delete_all", start, err)
	if err != nil {
		return outcome, err
	}
	c.logger.Info(ctx, "deleted all entries",
		zap.Int("deleted", outcome.Deleted),
		zap.Int("remaining", outcome.Remaining),
		zap.Int("submitted", outcome.Submitted),
	)
	return outcome, nil
}

// DeleteForUser removes every entry owned by username. Entries are found by
// scoped enumeration and deleted in batches; entries beyond the enumeration
// cap survive this pass and need another call once stats settle.
func (c *DeletionController) DeleteForUser(ctx context.Context, username string) (DeleteOutcome, error) {
	start := time.Now()

	before, err := c.count(ctx)
	if err != nil {
		observeOperation("delete_user", start, err)
		return DeleteOutcome{}, err
	}

	ids, err := c.engine.EnumerateIDs(ctx, username)
	if err != nil {
		observeOperation("delete_user", start, err)
		return DeleteOutcome{}, &DeletionError{Op: "enumerating user entries", Err: err}
	}
	if len(ids) == 0 {
		observeOperation("delete_user", start, nil)
		return DeleteOutcome{Remaining: before}, nil
	}

	if err := c.deleteBatches(ctx, ids); err != nil {
		observeOperation("delete_user", start, err)
		return DeleteOutcome{}, err
	}

	outcome, err := c.verify(ctx, before, len(ids))
	observeOperation("delete_user", start, err)
	if err != nil {
		return outcome, err
	}
	if outcome.Deleted != outcome.Submitted {
		c.logger.Warn(ctx, "deleted count does not match submitted ids yet",
			zap.String("username", username),
			zap.Int("submitted", outcome.Submitted),
			zap.Int("deleted", outcome.Deleted),
		)
	} else {
		c.logger.Info(ctx, "deleted user entries",
			zap.String("username", username),
			zap.Int("deleted", outcome.Deleted),
		)
	}
	return outcome, nil
}

func (c *DeletionController) deleteBatches(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := c.client.Delete(ctx, c.indexName, ids[start:end]); err != nil {
			return &DeletionError{Op: "deleting entry batch", Err: err}
		}
	}
	return nil
}

func (c *DeletionController) count(ctx context.Context) (int, error) {
	stats, err := c.client.DescribeStats(ctx, c.indexName)
	if err != nil {
		return 0, &DeletionError{Op: "reading index stats", Err: err}
	}
	return stats.TotalVectorCount, nil
}

func (c *DeletionController) verify(ctx context.Context, before, submitted int) (DeleteOutcome, error) {
	after, err := c.count(ctx)
	if err != nil {
		return DeleteOutcome{}, err
	}
	deleted := before - after
	if deleted < 0 {
		// Concurrent ingestion outran the deletion window.
		deleted = 0
	}
	return DeleteOutcome{Deleted: deleted, Remaining: after, Submitted: submitted}, nil
}
