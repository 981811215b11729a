package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fedhatrac/categorizer/internal/infra/storage"
)

// Backfill categorizes transactions that never passed through the queue or
// were left uncategorized. It operates on rows, not deliveries, so it does
// not consult the idempotency guard; races with live workers are absorbed
// by the repository's conflict handling.
type Backfill struct {
	txns      storage.TransactionRepository
	proc      *Processor
	batchSize int
	log       *slog.Logger
}

// NewBackfill creates a backfill pass.
func NewBackfill(txns storage.TransactionRepository, proc *Processor, batchSize int) *Backfill {
	return &Backfill{
		txns:      txns,
		proc:      proc,
		batchSize: batchSize,
		log:       slog.Default().With("component", "backfill"),
	}
}

// Run loops over uncategorized batches until one comes back empty. A batch
// where no row could be updated also stops the pass: the same rows would
// come back forever otherwise.
func (b *Backfill) Run(ctx context.Context) error {
	b.log.Info("Starting backfill pass", "batch_size", b.batchSize)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := b.txns.FindUncategorized(ctx, b.batchSize)
		if err != nil {
			return fmt.Errorf("failed to load uncategorized batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		b.log.Info("Processing uncategorized batch", "count", len(batch))

		updated := 0
		for _, txn := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if b.proc.CategorizeAndStore(ctx, txn, "backfill") {
				updated++
				total++
			}
		}

		if updated == 0 {
			b.log.Warn("No rows updated in batch, stopping backfill", "remaining", len(batch))
			break
		}
	}

	b.log.Info("Backfill pass complete", "updated", total)
	return nil
}
