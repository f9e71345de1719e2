package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/calvinwijaya/card-games-api/internal/store"
)

// PurgeExpired returns a task that drops expired game records from st
func PurgeExpired(st store.Store, logger *slog.Logger) func(context.Context) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		n, err := st.PurgeExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("purged expired records", "count", n)
		}
		return nil
	}
}
