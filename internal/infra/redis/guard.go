package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard suppresses duplicate processing of redelivered transactions.
// TryBegin is a single atomic check-and-set (SETNX); the presence of the
// marker, not its value, is the signal.
type Guard struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewGuard creates a guard over the given client.
func NewGuard(client *Client) *Guard {
	return &Guard{
		rdb: client.rdb,
		log: slog.Default().With("component", "guard"),
	}
}

func processedKey(txnID int64) string {
	return fmt.Sprintf("processed:%d", txnID)
}

// TryBegin sets a marker for the transaction if absent and reports whether
// the caller owns the item. A false return means another delivery of the
// same transaction is in flight and the item must be skipped. If the
// backing store is unreachable the guard fails closed and returns false;
// skipping an item is recoverable, a double write is not.
func (g *Guard) TryBegin(ctx context.Context, txnID int64, ttl time.Duration) bool {
	ok, err := g.rdb.SetNX(ctx, processedKey(txnID), "1", ttl).Result()
	if err != nil {
		g.log.Warn("Guard store unreachable, treating item as in flight",
			"transaction", txnID, "error", err)
		return false
	}
	return ok
}

// End removes the marker unconditionally. Callers run it on every exit
// path; only a process crash leaves the marker to expire by TTL.
func (g *Guard) End(ctx context.Context, txnID int64) {
	if err := g.rdb.Del(ctx, processedKey(txnID)).Err(); err != nil {
		g.log.Warn("Failed to clear guard marker", "transaction", txnID, "error", err)
	}
}
