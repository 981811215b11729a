package domain

import "time"

// TxType distinguishes money in from money out.
type TxType string

const (
	TxTypeCredit TxType = "credit"
	TxTypeDebit  TxType = "debit"
)

// Transaction is a financial transaction as stored. Amount is in minor
// currency units. CategoryID is nil until the pipeline assigns one; a
// sentinel category id is treated the same as nil by lookup queries.
type Transaction struct {
	ID         int64
	ExternalID string
	CategoryID *int64
	Type       TxType
	Amount     int64
	Narration  string
	Date       *time.Time
	Currency   string
}

// Categorized reports whether the transaction already carries a real
// category, i.e. one that is neither absent nor the sentinel.
func (t *Transaction) Categorized(sentinelID int64) bool {
	return t.CategoryID != nil && *t.CategoryID != sentinelID
}
