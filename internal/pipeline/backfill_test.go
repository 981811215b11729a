package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

func TestBackfillCategorizesAllRows(t *testing.T) {
	repo := newMockTxRepo()
	for i := int64(1); i <= 25; i++ {
		repo.txns[i] = uncategorized(i, "UBER TRIP")
	}

	proc := newTestProcessor(repo, transportCategories(), newMockGuard(), nil)
	backfill := NewBackfill(repo, proc, 10)

	if err := backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.updateCount() != 25 {
		t.Errorf("expected 25 updates, got %d", repo.updateCount())
	}
}

func TestBackfillSkipsCategorizedRows(t *testing.T) {
	repo := newMockTxRepo()
	five := int64(5)
	repo.txns[1] = domain.Transaction{ID: 1, Narration: "UBER TRIP", CategoryID: &five}
	repo.txns[2] = uncategorized(2, "UBER TRIP")

	proc := newTestProcessor(repo, transportCategories(), newMockGuard(), nil)
	backfill := NewBackfill(repo, proc, 10)

	if err := backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.updateCount() != 1 {
		t.Errorf("expected only the uncategorized row updated, got %d updates", repo.updateCount())
	}
}

func TestBackfillStopsWhenNothingUpdates(t *testing.T) {
	repo := newMockTxRepo(uncategorized(1, "UBER TRIP"))

	// No category rows at all: every item is unresolvable, so the same
	// batch would come back forever. The pass must stop, not spin.
	proc := newTestProcessor(repo, &mockCategoryRepo{}, newMockGuard(), nil)
	backfill := NewBackfill(repo, proc, 10)

	done := make(chan error, 1)
	go func() { done <- backfill.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backfill did not terminate on a zero-update batch")
	}
}

func TestBackfillPropagatesQueryError(t *testing.T) {
	repo := newMockTxRepo()
	repo.findErr = errors.New("relation does not exist")

	proc := newTestProcessor(repo, transportCategories(), newMockGuard(), nil)
	backfill := NewBackfill(repo, proc, 10)

	if err := backfill.Run(context.Background()); err == nil {
		t.Fatal("expected query error to propagate")
	}
}

func TestBackfillHonorsCancellation(t *testing.T) {
	repo := newMockTxRepo()
	for i := int64(1); i <= 100; i++ {
		repo.txns[i] = uncategorized(i, "UBER TRIP")
	}

	proc := newTestProcessor(repo, transportCategories(), newMockGuard(), nil)
	backfill := NewBackfill(repo, proc, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := backfill.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.updateCount() != 0 {
		t.Errorf("cancelled pass must not update, got %d updates", repo.updateCount())
	}
}
