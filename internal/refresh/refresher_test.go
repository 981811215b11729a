package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fedhatrac/categorizer/internal/categorize"
	"github.com/fedhatrac/categorizer/internal/core/domain"
)

type stubClassifier struct {
	id int64
}

func (s *stubClassifier) Classify(ctx context.Context, narration string, amount int64) (int64, error) {
	return s.id, nil
}

type mockTxRepo struct {
	rows []*domain.Transaction
	err  error
}

func (m *mockTxRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return nil, nil
}

func (m *mockTxRepo) UpdateCategory(ctx context.Context, id, categoryID int64) (bool, error) {
	return false, nil
}

func (m *mockTxRepo) FindUncategorized(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	return nil, nil
}

func (m *mockTxRepo) FindCategorizedSince(ctx context.Context, windowStart time.Time) ([]*domain.Transaction, error) {
	return m.rows, m.err
}

type mockTrainer struct {
	classifier categorize.Classifier
	err        error
	trainedOn  int
}

func (m *mockTrainer) Train(ctx context.Context, txns []*domain.Transaction) (categorize.Classifier, error) {
	m.trainedOn = len(txns)
	return m.classifier, m.err
}

func categorizedRows(n int) []*domain.Transaction {
	rows := make([]*domain.Transaction, n)
	now := time.Now()
	for i := range rows {
		five := int64(5)
		rows[i] = &domain.Transaction{ID: int64(i + 1), CategoryID: &five, Date: &now}
	}
	return rows
}

func TestRefreshOnceSwapsClassifier(t *testing.T) {
	old := &stubClassifier{id: 1}
	fresh := &stubClassifier{id: 2}
	holder := categorize.NewHolder(old)
	trainer := &mockTrainer{classifier: fresh}

	r := NewRefresher(&mockTxRepo{rows: categorizedRows(5)}, trainer, holder, time.Hour, 24*time.Hour)

	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trainer.trainedOn != 5 {
		t.Errorf("expected training on 5 rows, got %d", trainer.trainedOn)
	}
	if holder.Load() != categorize.Classifier(fresh) {
		t.Error("holder still serving the old classifier")
	}
}

func TestRefreshOnceKeepsClassifierOnTrainingFailure(t *testing.T) {
	old := &stubClassifier{id: 1}
	holder := categorize.NewHolder(old)
	trainer := &mockTrainer{err: errors.New("not enough samples")}

	r := NewRefresher(&mockTxRepo{rows: categorizedRows(3)}, trainer, holder, time.Hour, 24*time.Hour)

	if err := r.RefreshOnce(context.Background()); err == nil {
		t.Fatal("expected training error")
	}
	if holder.Load() != categorize.Classifier(old) {
		t.Error("failed refresh must keep the previous classifier")
	}
}

func TestRefreshOnceEmptyWindowIsNoop(t *testing.T) {
	old := &stubClassifier{id: 1}
	holder := categorize.NewHolder(old)
	trainer := &mockTrainer{classifier: &stubClassifier{id: 2}}

	r := NewRefresher(&mockTxRepo{}, trainer, holder, time.Hour, 24*time.Hour)

	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trainer.trainedOn != 0 {
		t.Error("trainer must not run on an empty window")
	}
	if holder.Load() != categorize.Classifier(old) {
		t.Error("empty window must keep the previous classifier")
	}
}

func TestRefreshOnceQueryFailure(t *testing.T) {
	holder := categorize.NewHolder(&stubClassifier{id: 1})
	trainer := &mockTrainer{}

	r := NewRefresher(&mockTxRepo{err: errors.New("db down")}, trainer, holder, time.Hour, 24*time.Hour)

	if err := r.RefreshOnce(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
	if trainer.trainedOn != 0 {
		t.Error("trainer must not run when the window query fails")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	holder := categorize.NewHolder(nil)
	r := NewRefresher(&mockTxRepo{}, &mockTrainer{}, holder, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop after cancellation")
	}
}
