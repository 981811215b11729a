package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fedhatrac/categorizer/internal/categorize"
	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/infra/storage"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
)

// Trainer is the external model-building capability. It receives recently
// categorized transactions and returns a classifier trained on them.
type Trainer interface {
	Train(ctx context.Context, txns []*domain.Transaction) (categorize.Classifier, error)
}

// Refresher periodically rebuilds the ML classifier from freshly
// categorized data and swaps it into the holder without stopping workers.
type Refresher struct {
	txns     storage.TransactionRepository
	trainer  Trainer
	holder   *categorize.Holder
	interval time.Duration
	window   time.Duration
	log      *slog.Logger
}

// NewRefresher creates a refresher.
func NewRefresher(
	txns storage.TransactionRepository,
	trainer Trainer,
	holder *categorize.Holder,
	interval, window time.Duration,
) *Refresher {
	return &Refresher{
		txns:     txns,
		trainer:  trainer,
		holder:   holder,
		interval: interval,
		window:   window,
		log:      slog.Default().With("component", "refresh"),
	}
}

// Run refreshes on a ticker until the context is cancelled. A failed
// refresh keeps the previous classifier and is retried on the next tick.
func (r *Refresher) Run(ctx context.Context) {
	r.log.Info("Starting model refresher", "interval", r.interval, "window", r.window)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Model refresher stopped")
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				r.log.Error("Model refresh failed", "error", err)
				metrics.ModelRefreshes.WithLabelValues("error").Inc()
			} else {
				metrics.ModelRefreshes.WithLabelValues("ok").Inc()
			}
		}
	}
}

// RefreshOnce trains on the categorized window and swaps the classifier.
// An empty window is a no-op, not an error.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	windowStart := time.Now().Add(-r.window)

	rows, err := r.txns.FindCategorizedSince(ctx, windowStart)
	if err != nil {
		return fmt.Errorf("failed to load training window: %w", err)
	}
	if len(rows) == 0 {
		r.log.Info("No categorized transactions in window, keeping current model")
		return nil
	}

	classifier, err := r.trainer.Train(ctx, rows)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	r.holder.Swap(classifier)
	r.log.Info("Classifier refreshed", "training_rows", len(rows))
	return nil
}
