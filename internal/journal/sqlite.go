package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"poliglotbot/internal/platform/sqlite"
	"poliglotbot/internal/shared"
)

// SQLiteStore keeps launches in an embedded SQLite file. Times are stored as unix milliseconds.
type SQLiteStore struct {
	db     *sql.DB
	runner *sqlite.TxRunner
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, runner: sqlite.NewTxRunner(db)}
}

func (s *SQLiteStore) Record(ctx context.Context, l Launch) error {
	err := s.runner.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.runner.GetQuerier(ctx).ExecContext(ctx,
			`INSERT INTO launches (id, chat_id, user_id, username, language_code, at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
			l.ID.String(), l.ChatID, l.UserID, l.Username, l.LanguageCode, l.At.UnixMilli())
		return err
	})
	if err != nil {
		return shared.MarkKind(fmt.Errorf("journal: record launch: %w", err), shared.KindDependencyFailure)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	st := Stats{Since: since}
	err := s.runner.GetQuerier(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM launches WHERE at_ms >= ?`, since.UnixMilli(),
	).Scan(&st.Launches, &st.UniqueUsers)
	if err != nil {
		return Stats{}, shared.MarkKind(fmt.Errorf("journal: stats: %w", err), shared.KindDependencyFailure)
	}
	return st, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
