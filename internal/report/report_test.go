package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poliglotbot/internal/adapter/scheduler"
	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/journal"
	"poliglotbot/internal/messages"
	"poliglotbot/internal/platform/logger"
)

type fakeStats struct {
	since time.Time
	st    journal.Stats
	err   error
}

func (f *fakeStats) Stats(_ context.Context, since time.Time) (journal.Stats, error) {
	f.since = since
	return f.st, f.err
}

type fakeSender struct {
	chatID int64
	text   string
	btn    *telegram.Button
	calls  int
	err    error
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, btn *telegram.Button) error {
	f.calls++
	f.chatID, f.text, f.btn = chatID, text, btn
	return f.err
}

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newJob(stats StatsReader, s telegram.Sender, chatID int64) *Job {
	c := messages.Default()
	c.Report = "{{launches}}/{{users}}"
	j := New(stats, s, c, chatID, logger.Discard())
	j.now = func() time.Time { return fixedNow }
	return j
}

func TestRun_SendsReport(t *testing.T) {
	stats := &fakeStats{st: journal.Stats{Launches: 12, UniqueUsers: 5}}
	s := &fakeSender{}

	require.NoError(t, newJob(stats, s, -100).Run(context.Background()))

	assert.Equal(t, fixedNow.Add(-24*time.Hour), stats.since)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, int64(-100), s.chatID)
	assert.Equal(t, "12/5", s.text)
	assert.Nil(t, s.btn)
}

func TestRun_LogOnlyWithoutChat(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, newJob(&fakeStats{}, s, 0).Run(context.Background()))
	assert.Zero(t, s.calls)
}

func TestRun_Errors(t *testing.T) {
	s := &fakeSender{}
	err := newJob(&fakeStats{err: errors.New("db down")}, s, -100).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, s.calls)

	s = &fakeSender{err: errors.New("forbidden")}
	err = newJob(&fakeStats{}, s, -100).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestSchedule(t *testing.T) {
	sch := scheduler.New(scheduler.Config{Logger: logger.Discard()})
	j := newJob(&fakeStats{}, &fakeSender{}, 0)
	assert.NoError(t, j.Schedule(sch, "0 0 9 * * *"))
	assert.Error(t, j.Schedule(sch, "every morning"))
}
