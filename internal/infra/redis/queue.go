package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
)

// pollInterval is how often an empty queue is re-checked while waiting.
const pollInterval = 100 * time.Millisecond

// Queue is a Redis-list work queue of serialized transactions. Items are
// removed before they are decoded, so delivery is at-least-once: a crash
// between removal and the repository write loses the queue entry, and the
// backfill pass picks the row up later.
type Queue struct {
	rdb        *redis.Client
	name       string
	deadLetter string
	log        *slog.Logger
}

// NewQueue creates a queue over the given client. deadLetter must name a
// list distinct from the main queue; malformed items end up there.
func NewQueue(client *Client, name, deadLetter string) *Queue {
	return &Queue{
		rdb:        client.rdb,
		name:       name,
		deadLetter: deadLetter,
		log:        slog.Default().With("component", "queue", "queue", name),
	}
}

// Enqueue serializes the transaction and appends it to the tail.
func (q *Queue) Enqueue(ctx context.Context, txn *domain.Transaction) error {
	data, err := json.Marshal(encodePayload(txn))
	if err != nil {
		return fmt.Errorf("failed to encode queue item: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

// DequeueBatch atomically removes up to maxCount items from the head and
// returns the ones that decode. If the queue is empty it polls for up to
// wait before returning an empty slice. Decode failures are routed to the
// dead-letter list and logged; they never fail the batch.
func (q *Queue) DequeueBatch(
	ctx context.Context,
	maxCount int,
	wait time.Duration,
) ([]*domain.Transaction, error) {
	deadline := time.Now().Add(wait)

	for {
		raw, err := q.pop(ctx, maxCount)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			return q.decodeAll(ctx, raw), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		delay := pollInterval
		if remaining < delay {
			delay = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// pop removes up to max items from the head in one round trip. LRANGE and
// LTRIM run in a transaction so no item is read twice or skipped.
func (q *Queue) pop(ctx context.Context, max int) ([]string, error) {
	pipe := q.rdb.TxPipeline()
	lrange := pipe.LRange(ctx, q.name, 0, int64(max)-1)
	pipe.LTrim(ctx, q.name, int64(max), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("dequeue pipeline failed: %w", err)
	}
	return lrange.Val(), nil
}

func (q *Queue) decodeAll(ctx context.Context, raw []string) []*domain.Transaction {
	items := make([]*domain.Transaction, 0, len(raw))
	for _, r := range raw {
		txn, err := DecodeTransaction([]byte(r))
		if err != nil {
			q.log.Error("Malformed queue item, moving to dead letter", "error", err)
			metrics.DeadLetterTotal.Inc()
			// Forward verbatim so the payload can be inspected and fixed by hand.
			if dlErr := q.rdb.RPush(ctx, q.deadLetter, r).Err(); dlErr != nil {
				q.log.Error("Failed to push to dead letter", "error", dlErr)
			}
			continue
		}
		items = append(items, txn)
	}
	return items
}

// Size returns the current queue length.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return n, nil
}

// Clear removes all items from the queue.
func (q *Queue) Clear(ctx context.Context) error {
	return q.rdb.Del(ctx, q.name).Err()
}

// payload mirrors the queue wire format. Unknown fields are ignored by
// encoding/json; id may arrive as a JSON number or string.
type payload struct {
	ID        flexID `json:"id"`
	Narration string `json:"narration"`
	Amount    int64  `json:"amount"`
	Type      string `json:"type,omitempty"`
	Date      string `json:"date,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

func encodePayload(txn *domain.Transaction) payload {
	p := payload{
		ID:        flexID(txn.ID),
		Narration: txn.Narration,
		Amount:    txn.Amount,
		Type:      string(txn.Type),
		Currency:  txn.Currency,
	}
	if txn.Date != nil {
		p.Date = txn.Date.Format(time.RFC3339)
	}
	return p
}

// dateLayouts covers the ISO-8601 variants producers are known to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DecodeTransaction decodes a raw queue item into a transaction-shaped
// value. A missing or unparsable id, missing narration, or a date that is
// present but unparsable makes the item malformed.
func DecodeTransaction(data []byte) (*domain.Transaction, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid queue item: %w", err)
	}
	if p.ID <= 0 {
		return nil, fmt.Errorf("invalid queue item: missing or non-positive id")
	}
	if p.Narration == "" {
		return nil, fmt.Errorf("invalid queue item: missing narration")
	}

	txn := &domain.Transaction{
		ID:        int64(p.ID),
		Narration: p.Narration,
		Amount:    p.Amount,
		Type:      domain.TxType(p.Type),
		Currency:  p.Currency,
	}

	if p.Date != "" {
		var parsed time.Time
		var err error
		for _, layout := range dateLayouts {
			parsed, err = time.Parse(layout, p.Date)
			if err == nil {
				break
			}
		}
		if err != nil {
			return nil, fmt.Errorf("invalid queue item date %q: %w", p.Date, err)
		}
		txn.Date = &parsed
	}

	return txn, nil
}

// flexID accepts both JSON numbers and numeric strings.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("id is not numeric: %w", err)
		}
		*f = flexID(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}
