package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

// optimize runs PRAGMA optimize every hour until ctx is done. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) optimize(ctx context.Context) {
	// 0x10002 also analyzes tables that have never been analyzed, which suits long-lived connections.
	pragma := "PRAGMA optimize = 0x10002;"
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, pragma); err != nil {
			if ctx.Err() != nil {
				return
			}
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
				errors.SlogError(errors.Wrap(err, "optimize")))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
		}
		pragma = "PRAGMA optimize;"
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
