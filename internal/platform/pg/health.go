package pg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"poliglotbot/pkg/retry"
)

// WaitForDB ждёт, пока PostgreSQL начнёт принимать подключения (например, при старте в docker compose).
func WaitForDB(ctx context.Context, dsn string, cfg retry.Config, log *slog.Logger) error {
	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		log.Warn("database not ready", "attempt", attempt, "retry_in", next, "err", err)
	}
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		pool, err := NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		pool.Close()
		return nil
	})
}

// HealthCheckPool выполняет проверку здоровья существующего пула.
func HealthCheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pg: pool is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("pg: health query: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("pg: unexpected health result %d", one)
	}
	return nil
}
