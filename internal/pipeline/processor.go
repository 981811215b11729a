package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/infra/storage"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
)

// Guard suppresses duplicate processing under at-least-once delivery.
type Guard interface {
	TryBegin(ctx context.Context, txnID int64, ttl time.Duration) bool
	End(ctx context.Context, txnID int64)
}

// Categorizer assigns a category name to a transaction.
type Categorizer interface {
	Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string
}

// Publisher emits an event after a successful categorization. Best effort;
// failures are logged and never affect the item's outcome.
type Publisher interface {
	PublishCategorized(ctx context.Context, txn *domain.Transaction, cat *domain.Category) error
}

// Processor runs a single item through guard, dispatcher and repository.
// All failures are contained here: a Process call never returns an error
// to the worker loop.
type Processor struct {
	txns       storage.TransactionRepository
	categories storage.CategoryRepository
	categorize Categorizer
	guard      Guard
	publisher  Publisher // may be nil
	guardTTL   time.Duration
	sentinelID int64
	log        *slog.Logger
}

// NewProcessor wires a processor. publisher may be nil.
func NewProcessor(
	txns storage.TransactionRepository,
	categories storage.CategoryRepository,
	categorizer Categorizer,
	guard Guard,
	publisher Publisher,
	guardTTL time.Duration,
	sentinelID int64,
) *Processor {
	return &Processor{
		txns:       txns,
		categories: categories,
		categorize: categorizer,
		guard:      guard,
		publisher:  publisher,
		guardTTL:   guardTTL,
		sentinelID: sentinelID,
		log:        slog.Default().With("component", "processor"),
	}
}

// Process handles one queue delivery: guard, re-read, categorize, persist.
// The guard marker is released on every exit path; only a process crash
// leaves it to expire by TTL.
func (p *Processor) Process(ctx context.Context, txn *domain.Transaction) {
	if !p.guard.TryBegin(ctx, txn.ID, p.guardTTL) {
		metrics.DuplicatesSuppressed.Inc()
		p.log.Debug("Duplicate delivery suppressed", "transaction", txn.ID)
		return
	}
	// Release must run even when shutdown cancels ctx mid-item.
	defer p.guard.End(context.WithoutCancel(ctx), txn.ID)

	current, err := p.txns.GetByID(ctx, txn.ID)
	if err != nil {
		p.log.Error("Failed to read transaction", "transaction", txn.ID, "error", err)
		metrics.ItemsProcessed.WithLabelValues("queue", "error").Inc()
		return
	}
	if current == nil {
		p.log.Warn("Transaction not found, skipping", "transaction", txn.ID)
		metrics.ItemsProcessed.WithLabelValues("queue", "missing_row").Inc()
		return
	}
	if current.Categorized(p.sentinelID) {
		p.log.Debug("Transaction already categorized, skipping",
			"transaction", txn.ID, "category_id", *current.CategoryID)
		metrics.ItemsProcessed.WithLabelValues("queue", "already_categorized").Inc()
		return
	}

	p.CategorizeAndStore(ctx, txn, "queue")
}

// CategorizeAndStore categorizes the transaction and persists the result,
// reporting whether a row was updated. Shared by the queue path and the
// backfill pass.
func (p *Processor) CategorizeAndStore(ctx context.Context, txn *domain.Transaction, source string) bool {
	start := time.Now()
	name := p.categorize.Categorize(ctx, txn.Narration, txn.Amount, txn.Date)
	metrics.CategorizeLatency.Observe(time.Since(start).Seconds())

	cat, err := p.categories.GetByName(ctx, name)
	if err != nil {
		p.log.Error("Failed to resolve category", "category", name, "error", err)
		metrics.ItemsProcessed.WithLabelValues(source, "error").Inc()
		return false
	}
	if cat == nil {
		p.log.Warn("Category not found for name", "category", name, "transaction", txn.ID)
		metrics.ItemsProcessed.WithLabelValues(source, "unresolvable").Inc()
		return false
	}

	ok, err := p.txns.UpdateCategory(ctx, txn.ID, cat.ID)
	if errors.Is(err, storage.ErrConflict) {
		// A concurrent writer got there first; the row is settled.
		p.log.Debug("Concurrent update won, treating as done", "transaction", txn.ID)
		metrics.ItemsProcessed.WithLabelValues(source, "already_updated").Inc()
		return false
	}
	if err != nil {
		p.log.Error("Failed to update transaction", "transaction", txn.ID, "error", err)
		metrics.ItemsProcessed.WithLabelValues(source, "error").Inc()
		return false
	}
	if !ok {
		p.log.Warn("Transaction disappeared before update", "transaction", txn.ID)
		metrics.ItemsProcessed.WithLabelValues(source, "missing_row").Inc()
		return false
	}

	p.log.Info("Transaction categorized",
		"transaction", txn.ID, "category", cat.Name, "amount", txn.Amount)
	metrics.ItemsProcessed.WithLabelValues(source, "categorized").Inc()

	if p.publisher != nil {
		if err := p.publisher.PublishCategorized(ctx, txn, cat); err != nil {
			p.log.Warn("Failed to publish categorized event",
				"transaction", txn.ID, "error", err)
		}
	}
	return true
}
