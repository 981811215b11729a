package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// ErrConflict is returned by UpdateCategory when a concurrent writer hit a
// uniqueness constraint first. Callers treat it as "already updated".
var ErrConflict = errors.New("conflicting concurrent update")

// TransactionRepository handles transaction persistence. Lookups that find
// nothing return (nil, nil); errors are reserved for the store itself.
type TransactionRepository interface {
	// GetByID retrieves a transaction by primary key.
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)

	// UpdateCategory assigns a category under a row-level lock. Returns
	// false if the row does not exist, ErrConflict on a concurrent
	// uniqueness violation. Idempotent for identical inputs.
	UpdateCategory(ctx context.Context, id, categoryID int64) (bool, error)

	// FindUncategorized returns transactions whose category is null or the
	// sentinel, newest first. Every call reads fresh state.
	FindUncategorized(ctx context.Context, limit int) ([]*domain.Transaction, error)

	// FindCategorizedSince returns settled, categorized transactions dated
	// at or after windowStart, newest first. Feeds model refresh.
	FindCategorizedSince(ctx context.Context, windowStart time.Time) ([]*domain.Transaction, error)
}

// CategoryRepository resolves categories. Read-only for the pipeline.
type CategoryRepository interface {
	// GetByID retrieves a category by id.
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// GetByName resolves a category name to exactly one category, or
	// (nil, nil) when no category carries that name.
	GetByName(ctx context.Context, name string) (*domain.Category, error)
}
