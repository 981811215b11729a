package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db         *DB
	sentinelID int64
}

// NewTxRepo creates a new PostgreSQL transaction repository. sentinelID is
// the reserved "uncategorized" category id.
func NewTxRepo(db *DB, sentinelID int64) *TxRepo {
	return &TxRepo{db: db, sentinelID: sentinelID}
}

const txColumns = `id, transaction_id, category_id, type, amount, narration, date, currency`

type txRow struct {
	ID         int64         `db:"id"`
	ExternalID string        `db:"transaction_id"`
	CategoryID sql.NullInt64 `db:"category_id"`
	Type       string        `db:"type"`
	Amount     int64         `db:"amount"`
	Narration  string        `db:"narration"`
	Date       sql.NullTime  `db:"date"`
	Currency   string        `db:"currency"`
}

func (r *txRow) toDomain() *domain.Transaction {
	txn := &domain.Transaction{
		ID:         r.ID,
		ExternalID: r.ExternalID,
		Type:       domain.TxType(r.Type),
		Amount:     r.Amount,
		Narration:  r.Narration,
		Currency:   r.Currency,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		txn.CategoryID = &id
	}
	if r.Date.Valid {
		d := r.Date.Time
		txn.Date = &d
	}
	return txn
}

// GetByID retrieves a transaction by primary key.
func (r *TxRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	var row txRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateCategory assigns a category under a row-level lock: the row is
// locked and re-read, then updated, all in one transaction. Returns false
// if the row does not exist, storage.ErrConflict when a concurrent writer
// violated a uniqueness constraint first.
func (r *TxRepo) UpdateCategory(ctx context.Context, id, categoryID int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked txRow
	err = tx.GetContext(ctx, &locked,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET category_id = $1, updated_at = NOW() WHERE id = $2`,
		categoryID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return false, storage.ErrConflict
		}
		return false, fmt.Errorf("failed to update category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return false, storage.ErrConflict
		}
		return false, fmt.Errorf("failed to commit update: %w", err)
	}
	return true, nil
}

// FindUncategorized returns transactions with no category or the sentinel
// category, newest first.
func (r *TxRepo) FindUncategorized(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE category_id IS NULL OR category_id = $1
		ORDER BY date DESC NULLS LAST
		LIMIT $2
	`

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, query, r.sentinelID, limit); err != nil {
		return nil, fmt.Errorf("failed to find uncategorized transactions: %w", err)
	}

	txns := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		txns = append(txns, rows[i].toDomain())
	}
	return txns, nil
}

// FindCategorizedSince returns categorized, non-sentinel transactions dated
// at or after windowStart, newest first. Read-only; rows selected here are
// already settled.
func (r *TxRepo) FindCategorizedSince(ctx context.Context, windowStart time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE category_id IS NOT NULL AND category_id <> $1 AND date >= $2
		ORDER BY date DESC
	`

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, query, r.sentinelID, windowStart); err != nil {
		return nil, fmt.Errorf("failed to find categorized transactions: %w", err)
	}

	txns := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		txns = append(txns, rows[i].toDomain())
	}
	return txns, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
