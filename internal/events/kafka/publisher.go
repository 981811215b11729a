package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// CategorizedEvent is emitted after a transaction is durably categorized.
type CategorizedEvent struct {
	EventID       string    `json:"event_id"`
	TransactionID int64     `json:"transaction_id"`
	ExternalID    string    `json:"external_transaction_id,omitempty"`
	CategoryID    int64     `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	CategorizedAt time.Time `json:"categorized_at"`
}

// Publisher emits categorization events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishCategorized publishes one event, keyed by transaction id so
// redundant attempts for the same transaction land in the same partition.
func (p *Publisher) PublishCategorized(ctx context.Context, txn *domain.Transaction, cat *domain.Category) error {
	event := CategorizedEvent{
		EventID:       uuid.NewString(),
		TransactionID: txn.ID,
		ExternalID:    txn.ExternalID,
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		CategorizedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(txn.ID, 10)),
		Value: data,
	})
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
