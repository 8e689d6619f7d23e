// Package scheduler запускает периодические задачи по cron-расписанию (с секундами).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc представляет функцию задачи планировщика.
type JobFunc func(ctx context.Context) error

// JobID представляет идентификатор задачи.
type JobID = cron.EntryID

// OverlapPolicy определяет, что делать, если предыдущий запуск ещё идёт.
type OverlapPolicy int

const (
	// AllowOverlap разрешает параллельное выполнение (по умолчанию).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning пропускает запуск, если задача уже выполняется.
	SkipIfRunning
)

// JobOptions содержит опции задачи.
type JobOptions struct {
	// Name - имя задачи для логов и метрик.
	Name string
	// Timeout - максимальное время выполнения (0 - без ограничения).
	Timeout time.Duration
	// OverlapPolicy - политика перекрывающихся запусков.
	OverlapPolicy OverlapPolicy
}

// JobHooks содержит необязательные хуки для наблюдаемости.
type JobHooks struct {
	OnJobFinish func(jobName string, duration time.Duration, err error)
}

// Config содержит конфигурацию планировщика.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
}

// cronLogger адаптер логгера cron к slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"err", err}, keysAndValues...)...)
}

// Scheduler управляет периодическими задачами.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	clog   cron.Logger
	hooks  JobHooks
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// New создает планировщик. Задачи получают контекст, который отменяется при остановке.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clog := cronLogger{logger: logger.With("component", "cron")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLogger(clog)),
		logger: logger,
		clog:   clog,
		hooks:  cfg.JobHooks,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddCronJob добавляет задачу по расписанию с секундами, например "0 0 9 * * *"
// (каждый день в 09:00) или "@every 1h".
func (s *Scheduler) AddCronJob(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "unnamed"
	}
	chain := cron.NewChain(cron.Recover(s.clog))
	if opts.OverlapPolicy == SkipIfRunning {
		chain = cron.NewChain(cron.Recover(s.clog), cron.SkipIfStillRunning(s.clog))
	}

	sched, err := Parse(schedule)
	if err != nil {
		return 0, fmt.Errorf("scheduler: job %s: %w", opts.Name, err)
	}
	id := s.cron.Schedule(sched, chain.Then(cron.FuncJob(func() { s.run(job, opts) })))
	s.logger.Info("cron job added", "name", opts.Name, "schedule", schedule, "next", sched.Next(time.Now()))
	return id, nil
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse разбирает расписание в формате планировщика (шесть полей или дескриптор).
func Parse(schedule string) (cron.Schedule, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("bad schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// Start запускает планировщик; повторный вызов ничего не делает.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.cron.Start()
		s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	})
}

// Stop отменяет контекст задач и ждёт завершения запущенных, но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		done := s.cron.Stop()
		select {
		case <-done.Done():
			s.logger.Info("scheduler stopped")
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn("scheduler stop deadline exceeded", "err", err)
		}
	})
	return err
}

// run выполняет задачу с таймаутом и хуками.
func (s *Scheduler) run(job JobFunc, opts JobOptions) {
	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	duration := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(opts.Name, duration, err)
	}
	if err != nil {
		s.logger.Error("job failed", "name", opts.Name, "duration", duration, "err", err)
		return
	}
	s.logger.Debug("job done", "name", opts.Name, "duration", duration)
}
