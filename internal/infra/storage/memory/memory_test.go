package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

const sentinel = int64(32)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFindUncategorizedIncludesNullAndSentinel(t *testing.T) {
	store := NewMemoryStorage()
	s := sentinel
	five := int64(5)
	store.AddTransaction(domain.Transaction{ID: 1, Narration: "no category"})
	store.AddTransaction(domain.Transaction{ID: 2, Narration: "sentinel", CategoryID: &s})
	store.AddTransaction(domain.Transaction{ID: 3, Narration: "real category", CategoryID: &five})

	repo := NewTxRepo(store, sentinel)
	rows, err := repo.FindUncategorized(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 uncategorized rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.ID == 3 {
			t.Error("categorized row returned as uncategorized")
		}
	}
}

func TestFindUncategorizedNewestFirstWithLimit(t *testing.T) {
	store := NewMemoryStorage()
	store.AddTransaction(domain.Transaction{ID: 1, Narration: "old", Date: date("2025-01-01")})
	store.AddTransaction(domain.Transaction{ID: 2, Narration: "new", Date: date("2025-06-01")})
	store.AddTransaction(domain.Transaction{ID: 3, Narration: "mid", Date: date("2025-03-01")})
	store.AddTransaction(domain.Transaction{ID: 4, Narration: "dateless"})

	repo := NewTxRepo(store, sentinel)
	rows, err := repo.FindUncategorized(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(rows))
	}
	if rows[0].ID != 2 || rows[1].ID != 3 {
		t.Errorf("expected newest-first order [2 3], got [%d %d]", rows[0].ID, rows[1].ID)
	}
}

func TestUpdateCategory(t *testing.T) {
	store := NewMemoryStorage()
	store.AddTransaction(domain.Transaction{ID: 1, Narration: "x"})
	repo := NewTxRepo(store, sentinel)

	ok, err := repo.UpdateCategory(context.Background(), 1, 7)
	if err != nil || !ok {
		t.Fatalf("expected update to succeed, ok=%v err=%v", ok, err)
	}
	txn, _ := repo.GetByID(context.Background(), 1)
	if txn.CategoryID == nil || *txn.CategoryID != 7 {
		t.Errorf("category not persisted: %v", txn.CategoryID)
	}

	ok, err = repo.UpdateCategory(context.Background(), 99, 7)
	if err != nil || ok {
		t.Errorf("expected missing row to report false, ok=%v err=%v", ok, err)
	}
}

func TestGetByIDReturnsCopy(t *testing.T) {
	store := NewMemoryStorage()
	store.AddTransaction(domain.Transaction{ID: 1, Narration: "x"})
	repo := NewTxRepo(store, sentinel)

	txn, _ := repo.GetByID(context.Background(), 1)
	seven := int64(7)
	txn.CategoryID = &seven

	fresh, _ := repo.GetByID(context.Background(), 1)
	if fresh.CategoryID != nil {
		t.Error("mutating a returned transaction leaked into the store")
	}
}

func TestFindCategorizedSince(t *testing.T) {
	store := NewMemoryStorage()
	five := int64(5)
	s := sentinel
	store.AddTransaction(domain.Transaction{ID: 1, CategoryID: &five, Date: date("2025-06-10")})
	store.AddTransaction(domain.Transaction{ID: 2, CategoryID: &five, Date: date("2025-06-01")})
	store.AddTransaction(domain.Transaction{ID: 3, CategoryID: &s, Date: date("2025-06-10")})
	store.AddTransaction(domain.Transaction{ID: 4, Date: date("2025-06-10")})

	repo := NewTxRepo(store, sentinel)
	rows, err := repo.FindCategorizedSince(context.Background(), *date("2025-06-05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("expected only row 1 in window, got %+v", rows)
	}
}

func TestCategoryRepoGetByNameCaseInsensitive(t *testing.T) {
	store := NewMemoryStorage()
	store.AddCategory(domain.Category{ID: 3, Name: "Transport", Active: true})
	repo := NewCategoryRepo(store)

	cat, err := repo.GetByName(context.Background(), "transport")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat == nil || cat.ID != 3 {
		t.Fatalf("expected category 3, got %+v", cat)
	}

	missing, err := repo.GetByName(context.Background(), "absent")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown name, got %+v err=%v", missing, err)
	}
}
