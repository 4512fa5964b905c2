package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartSessionCleaner purges expired sessions with interval
func StartSessionCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `
                    DELETE FROM sessions
                     WHERE expires_at < $1
                `, time.Now().UTC())
				if err != nil {
					log.Error("failed to clean expired sessions", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
