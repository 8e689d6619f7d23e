package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poliglotbot/internal/config"
	"poliglotbot/internal/platform/logger"
	"poliglotbot/internal/shared"
)

func launch(userID int64, at time.Time) Launch {
	return Launch{ID: uuid.New(), ChatID: userID, UserID: userID, Username: "u", LanguageCode: "uz", At: at}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Record(ctx, launch(1, now.Add(-48*time.Hour))))
	require.NoError(t, s.Record(ctx, launch(1, now.Add(-time.Hour))))
	require.NoError(t, s.Record(ctx, launch(1, now.Add(-time.Minute))))
	require.NoError(t, s.Record(ctx, launch(2, now)))

	since := now.Add(-24 * time.Hour)
	st, err := s.Stats(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Launches)
	assert.Equal(t, int64(2), st.UniqueUsers)
	assert.True(t, since.Equal(st.Since))

	all, err := s.Stats(ctx, time.Time{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, all.Launches, int64(4))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(context.Background(), config.Storage{Driver: config.DriverSQLite, SQLitePath: path}, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := OpenSQLite(ctx, path, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, launch(9, time.Now())))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, logger.Discard())
	require.NoError(t, err)
	defer s.Close()
	st, err := s.Stats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Launches)
}

func TestOpenSQLite_CreatesMissingDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "db", "bot.db")

	s, err := OpenSQLite(ctx, path, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(ctx, launch(3, time.Now())))
	assert.FileExists(t, path)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "journal.db"), logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	l := launch(1, time.Now())
	require.NoError(t, s.Record(ctx, l))
	err = s.Record(ctx, l)
	require.Error(t, err)
	assert.True(t, shared.IsDependencyFailure(err))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), config.Storage{Driver: config.DriverPostgres, PostgresDSN: dsn}, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	before, err := s.Stats(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Record(ctx, launch(time.Now().UnixNano(), time.Now())))
	after, err := s.Stats(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, before.Launches+1, after.Launches)
}

func TestOpen_NoneAndUnknown(t *testing.T) {
	s, err := Open(context.Background(), config.Storage{Driver: config.DriverNone}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, s)
	assert.NoError(t, s.Record(context.Background(), launch(1, time.Now())))
	st, err := s.Stats(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, st.Launches)
	assert.NoError(t, s.Close())

	_, err = Open(context.Background(), config.Storage{Driver: "mongo"}, logger.Discard())
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
