package checkpointer

import (
	"context"
	"fmt"
	"time"
)

// Checkpointer abstracts checkpoint persistence across different data stores. Checkpoints track
// the lowest contiguous fetched index for a given chain, for operators to observe fetch progress.
// Per the fetch engine's design, this is an observability aid only: nothing reads a checkpoint
// back to resume fetcher state across restarts.
type Checkpointer interface {
	// Initialize ensures the underlying storage is ready (creates tables, schemas, etc.). This
	// should be idempotent and safe to call multiple times.
	Initialize(ctx context.Context) error

	// Write atomically persists a checkpoint. The EVM chain ID should be included in the key or
	// row in the data store. The timestamp used should be the current Unix timestamp in seconds.
	Write(ctx context.Context, evmChainID uint64, lowestUnprocessed uint64) error

	// Read retrieves the latest checkpoint for a chain. Returns the lowestUnprocessed index
	// and whether a checkpoint exists. If no checkpoint exists, exists will be false and
	// lowestUnprocessed will be 0.
	Read(ctx context.Context, evmChainID uint64) (lowestUnprocessed uint64, exists bool, err error)
}

// Start periodically persists the engine's lowest contiguous fetched index to durable storage.
// lowest is typically fetcher.Engine.Stats().Processed or an equivalent read-only snapshot.
//
// Returns nil on context cancellation (graceful shutdown), or an error if checkpoint writes
// fail after all retries.
func Start(
	ctx context.Context,
	lowest func() uint64,
	checkpointer Checkpointer,
	cfg Config,
	evmChainID uint64,
) error {
	t := time.NewTicker(cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown - exit without error
			return nil

		case <-t.C:
			lowest := lowest()

			var lastErr error
			for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
				// Check if context was cancelled before attempting write
				if ctx.Err() != nil {
					return nil
				}

				writeCtx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout)
				lastErr = checkpointer.Write(writeCtx, evmChainID, lowest)
				cancel()

				// Write succeeded
				if lastErr == nil {
					break
				}

				// Check if error was due to context cancellation
				if ctx.Err() != nil {
					return nil
				}

				// Don't sleep after the last attempt
				if attempt < cfg.MaxRetries {
					// Sleep with context awareness
					select {
					case <-time.After(cfg.RetryBackoff):
						// Continue to next retry
					case <-ctx.Done():
						return nil
					}
				}
			}

			// If we exhausted retries and still have an error, return it
			if lastErr != nil {
				return fmt.Errorf("failed to write checkpoint (lowest: %d) after %d attempts: %w",
					lowest, cfg.MaxRetries+1, lastErr)
			}
		}
	}
}
