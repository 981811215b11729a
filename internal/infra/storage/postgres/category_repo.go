package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// CategoryRepo implements storage.CategoryRepository using PostgreSQL.
type CategoryRepo struct {
	db *DB
}

// NewCategoryRepo creates a new PostgreSQL category repository.
func NewCategoryRepo(db *DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

type categoryRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Status bool   `db:"status"`
}

func (r *categoryRow) toDomain() *domain.Category {
	return &domain.Category{ID: r.ID, Name: r.Name, Active: r.Status}
}

// GetByID retrieves a category by id.
func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, name, status FROM categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return row.toDomain(), nil
}

// GetByName resolves a category name to exactly one category. Names are
// unique case-insensitively, so the lookup is deterministic.
func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, name, status FROM categories WHERE LOWER(name) = LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return row.toDomain(), nil
}
