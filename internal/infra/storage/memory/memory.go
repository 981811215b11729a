package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// MemoryStorage is an in-memory backing store shared by the repositories
// below. Used by tests and by dev mode when no database DSN is configured.
type MemoryStorage struct {
	txns       map[int64]domain.Transaction
	categories map[int64]domain.Category
	mu         sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		txns:       make(map[int64]domain.Transaction),
		categories: make(map[int64]domain.Category),
	}
}

// AddTransaction seeds a transaction.
func (s *MemoryStorage) AddTransaction(txn domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
}

// AddCategory seeds a category.
func (s *MemoryStorage) AddCategory(cat domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[cat.ID] = cat
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store      *MemoryStorage
	sentinelID int64
}

func NewTxRepo(store *MemoryStorage, sentinelID int64) *TxRepo {
	return &TxRepo{store: store, sentinelID: sentinelID}
}

func (r *TxRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	txn, ok := r.store.txns[id]
	if !ok {
		return nil, nil
	}
	return &txn, nil
}

func (r *TxRepo) UpdateCategory(ctx context.Context, id, categoryID int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	txn, ok := r.store.txns[id]
	if !ok {
		return false, nil
	}
	txn.CategoryID = &categoryID
	r.store.txns[id] = txn
	return true, nil
}

func (r *TxRepo) FindUncategorized(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.Transaction
	for _, txn := range r.store.txns {
		if !txn.Categorized(r.sentinelID) {
			t := txn
			result = append(result, &t)
		}
	}
	sortNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *TxRepo) FindCategorizedSince(ctx context.Context, windowStart time.Time) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.Transaction
	for _, txn := range r.store.txns {
		if txn.Categorized(r.sentinelID) && txn.Date != nil && !txn.Date.Before(windowStart) {
			t := txn
			result = append(result, &t)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func sortNewestFirst(txns []*domain.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		di, dj := txns[i].Date, txns[j].Date
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.After(*dj)
		}
	})
}

// -----------------------------------------------------------------------------
// Category Repository
// -----------------------------------------------------------------------------

type CategoryRepo struct {
	store *MemoryStorage
}

func NewCategoryRepo(store *MemoryStorage) *CategoryRepo {
	return &CategoryRepo{store: store}
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	cat, ok := r.store.categories[id]
	if !ok {
		return nil, nil
	}
	return &cat, nil
}

func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, cat := range r.store.categories {
		if strings.EqualFold(cat.Name, name) {
			c := cat
			return &c, nil
		}
	}
	return nil, nil
}
