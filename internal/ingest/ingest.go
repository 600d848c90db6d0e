package ingest

import (
	"context"
	"log/slog"
	"time"

	"trustpay/internal/model"
)

func SendNonBlocking(ctx context.Context, out chan<- model.Transaction, tx model.Transaction, logger *slog.Logger) bool {
	select {
	case out <- tx:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("transaction channel full, dropping", "tx_id", tx.ID, "account", tx.FromAccount)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
