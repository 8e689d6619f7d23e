package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"poliglotbot/internal/platform/pg"
	"poliglotbot/internal/shared"
)

// PostgresStore keeps launches in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	runner *pg.TxRunner
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, runner: pg.NewTxRunner(pool)}
}

func (s *PostgresStore) Record(ctx context.Context, l Launch) error {
	_, err := s.runner.GetQuerier(ctx).Exec(ctx,
		`INSERT INTO launches (id, chat_id, user_id, username, language_code, at) VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		l.ID.String(), l.ChatID, l.UserID, l.Username, l.LanguageCode, l.At)
	if err != nil {
		return shared.MarkKind(fmt.Errorf("journal: record launch: %w", err), shared.KindDependencyFailure)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	st := Stats{Since: since}
	err := s.runner.GetQuerier(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM launches WHERE at >= $1`, since,
	).Scan(&st.Launches, &st.UniqueUsers)
	if err != nil {
		return Stats{}, shared.MarkKind(fmt.Errorf("journal: stats: %w", err), shared.KindDependencyFailure)
	}
	return st, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return pg.HealthCheckPool(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
