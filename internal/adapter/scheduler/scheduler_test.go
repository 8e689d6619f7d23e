package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poliglotbot/internal/platform/logger"
)

func waitForAtLeast(t *testing.T, counter *int64, expected int64, timeout time.Duration) {
	t.Helper()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(counter) >= expected
	}, timeout, 10*time.Millisecond, "значение счётчика не достигло ожидаемого уровня")
}

func TestParse(t *testing.T) {
	for _, ok := range []string{"0 0 9 * * *", "*/30 * * * * *", "@every 1h", "@daily"} {
		_, err := Parse(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "0 9 * * *", "invalid schedule", "61 * * * * *"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	defer func() { _ = s.Stop(context.Background()) }()

	var counter int64
	_, err := s.AddCronJob("* * * * * *", func(context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}, JobOptions{Name: "tick"})
	require.NoError(t, err)

	s.Start()
	s.Start()
	waitForAtLeast(t, &counter, 1, 3*time.Second)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	_, err := s.AddCronJob("invalid schedule", func(context.Context) error { return nil }, JobOptions{Name: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestScheduler_HooksSeeErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		names []string
		errs  []error
		calls int64
	)
	s := New(Config{
		Logger: logger.Discard(),
		JobHooks: JobHooks{OnJobFinish: func(name string, _ time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			names = append(names, name)
			errs = append(errs, err)
			atomic.AddInt64(&calls, 1)
		}},
	})
	defer func() { _ = s.Stop(context.Background()) }()

	boom := errors.New("boom")
	_, err := s.AddCronJob("* * * * * *", func(context.Context) error { return boom }, JobOptions{Name: "report"})
	require.NoError(t, err)
	s.Start()

	waitForAtLeast(t, &calls, 1, 3*time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "report", names[0])
	assert.ErrorIs(t, errs[0], boom)
}

func TestScheduler_TimeoutAndStopCancelJob(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})

	var started, finished int64
	_, err := s.AddCronJob("* * * * * *", func(ctx context.Context) error {
		atomic.AddInt64(&started, 1)
		<-ctx.Done()
		atomic.AddInt64(&finished, 1)
		return ctx.Err()
	}, JobOptions{Name: "slow", Timeout: time.Minute, OverlapPolicy: SkipIfRunning})
	require.NoError(t, err)
	s.Start()

	waitForAtLeast(t, &started, 1, 3*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, atomic.LoadInt64(&started), atomic.LoadInt64(&finished))
	assert.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestScheduler_PanicDoesNotKillScheduler(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	defer func() { _ = s.Stop(context.Background()) }()

	var calls int64
	_, err := s.AddCronJob("* * * * * *", func(context.Context) error {
		if atomic.AddInt64(&calls, 1) == 1 {
			panic("first run")
		}
		return nil
	}, JobOptions{Name: "flaky"})
	require.NoError(t, err)
	s.Start()

	waitForAtLeast(t, &calls, 2, 4*time.Second)
}
