// Package report periodically summarises the launch journal.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"poliglotbot/internal/adapter/scheduler"
	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/journal"
	"poliglotbot/internal/messages"
)

// JobName identifies the report in logs and metrics.
const JobName = "launch_report"

// Window is the period the report covers.
const Window = 24 * time.Hour

// StatsReader is the read side of the launch journal.
type StatsReader interface {
	Stats(ctx context.Context, since time.Time) (journal.Stats, error)
}

// Job logs launch statistics and optionally posts them to a chat.
type Job struct {
	stats   StatsReader
	sender  telegram.Sender
	catalog messages.Catalog
	chatID  int64
	log     *slog.Logger
	now     func() time.Time
}

// New creates the job. chatID 0 means log only.
func New(stats StatsReader, sender telegram.Sender, catalog messages.Catalog, chatID int64, log *slog.Logger) *Job {
	return &Job{stats: stats, sender: sender, catalog: catalog, chatID: chatID, log: log, now: time.Now}
}

// Run is a scheduler.JobFunc.
func (j *Job) Run(ctx context.Context) error {
	since := j.now().Add(-Window)
	st, err := j.stats.Stats(ctx, since)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	j.log.Info("launch report", "since", since, "launches", st.Launches, "unique_users", st.UniqueUsers)

	if j.chatID == 0 || j.catalog.Report == "" {
		return nil
	}
	text := j.catalog.FormatReport(st.Launches, st.UniqueUsers)
	if err := j.sender.Send(ctx, j.chatID, text, nil); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Schedule adds the job to s.
func (j *Job) Schedule(s *scheduler.Scheduler, schedule string) error {
	_, err := s.AddCronJob(schedule, j.Run, scheduler.JobOptions{
		Name:          JobName,
		Timeout:       time.Minute,
		OverlapPolicy: scheduler.SkipIfRunning,
	})
	return err
}
