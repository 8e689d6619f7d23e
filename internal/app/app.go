package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/adapter/httpapi"
	"poliglotbot/internal/adapter/scheduler"
	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/adapter/telegram/handlers"
	"poliglotbot/internal/adapter/telegram/middleware"
	"poliglotbot/internal/config"
	"poliglotbot/internal/journal"
	"poliglotbot/internal/messages"
	"poliglotbot/internal/platform/httpclient"
	"poliglotbot/internal/platform/logger"
	"poliglotbot/internal/platform/metrics"
	"poliglotbot/internal/report"
	"poliglotbot/internal/shared"
	"poliglotbot/pkg/retry"
)

// handleTimeout bounds the processing of one update.
const handleTimeout = 30 * time.Second

// App wires application components.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	catalog messages.Catalog
}

// New loads configuration and texts. It fails with config.ErrPlaceholderToken before
// anything else is created when the bot token is missing.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "poliglotbot",
	})
	catalog, err := messages.Load(cfg.Messages.File)
	if err != nil {
		_ = logger.Close(log)
		return nil, err
	}
	if _, err := scheduler.Parse(cfg.Report.Schedule); err != nil {
		_ = logger.Close(log)
		return nil, shared.MarkKind(fmt.Errorf("REPORT_SCHEDULE: %w", err), shared.KindValidation)
	}
	return &App{cfg: cfg, log: log, catalog: catalog}, nil
}

// Close flushes the log file.
func (a *App) Close() error {
	return logger.Close(a.log)
}

// Router registers the command handlers that reply through sender.
// username is the bot's own username used to match "/start@<username>".
func (a *App) Router(sender telegram.Sender, username string) *telegram.Router {
	r := telegram.NewRouter(a.log, username)
	r.Register("start", handlers.NewStart(sender, a.cfg.WebApp.URL, a.catalog))
	return r
}

// Pipeline wraps router.Handle into the middleware chain every update passes.
// Access checks, rate limiting and the journal run only for registered commands.
func (a *App) Pipeline(router *telegram.Router, sender telegram.Sender, rec middleware.Recorder) telegram.HandlerFunc {
	return middleware.Chain(router.Handle,
		middleware.Recover(a.log),
		middleware.Detach(handleTimeout),
		middleware.Logging(a.log),
		router.Gate,
		middleware.NewACL(a.cfg.AllowedIDs, sender, a.catalog.AccessDenied).Middleware,
		middleware.NewRateLimiter(a.cfg.RateLimit, sender, a.catalog.RateLimited).Middleware,
		middleware.Journal(rec, a.log),
	)
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode := "polling"
	if a.cfg.Webhook() {
		mode = "webhook"
	}
	a.log.Info("starting", "mode", mode, "storage", a.cfg.Storage.Driver, "dry_run", a.cfg.Telegram.DryRun)

	store, err := journal.Open(ctx, a.cfg.Storage, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.log.Warn("close journal", "err", err)
		}
	}()

	client := httpclient.New(
		httpclient.WithLogger(a.log.With("component", "telegram_http")),
		httpclient.WithTimeout(a.cfg.Telegram.PollTimeout+15*time.Second),
	)

	var disp *telegram.Dispatcher
	opts := []bot.Option{
		bot.WithHTTPClient(a.cfg.Telegram.PollTimeout, client),
		bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, upd *models.Update) {
			disp.Dispatch(ctx, upd)
		}),
		bot.WithAllowedUpdates([]string{"message", "callback_query"}),
		bot.WithErrorsHandler(func(err error) {
			a.log.Warn("telegram transport", "err", err)
		}),
	}
	if a.cfg.Webhook() {
		opts = append(opts, bot.WithWebhookSecretToken(a.cfg.Telegram.WebhookSecret))
	}

	b, err := bot.New(a.cfg.Telegram.Token, opts...)
	if err != nil {
		return shared.MarkKind(fmt.Errorf("telegram: connect: %w", err), shared.KindDependencyFailure)
	}

	var sender telegram.Sender = telegram.NewBotSender(b)
	if a.cfg.Telegram.DryRun {
		sender = telegram.NewNopSender(a.log)
	}
	me, err := a.whoAmI(ctx, b)
	if err != nil {
		return err
	}
	router := a.Router(sender, me.Username)
	disp = telegram.NewDispatcher(a.cfg.Workers, a.Pipeline(router, sender, store))

	if err := a.publishCommands(ctx, b, router); err != nil {
		a.log.Warn("command menu not published", "err", err)
	}

	sch := scheduler.New(scheduler.Config{
		Logger:   a.log.With("component", "scheduler"),
		JobHooks: scheduler.JobHooks{OnJobFinish: metrics.ObserveJob},
	})
	job := report.New(store, sender, a.catalog, a.cfg.Report.ChatID, a.log)
	if err := job.Schedule(sch, a.cfg.Report.Schedule); err != nil {
		return err
	}
	sch.Start()

	var webhook http.Handler
	if a.cfg.Webhook() {
		webhook = b.WebhookHandler()
	}
	srv := httpapi.NewServer(a.cfg.HTTP.Addr, httpapi.NewRouter(httpapi.Options{
		Logger:  a.log.With("component", "http"),
		Checks:  map[string]httpapi.Check{"journal": store.Ping},
		Webhook: webhook,
	}), a.log)
	if err := srv.Start(); err != nil {
		_ = sch.Stop(context.Background())
		disp.Close()
		return shared.MarkKind(fmt.Errorf("http: %w", err), shared.KindDependencyFailure)
	}

	transportDone := make(chan struct{})
	if a.cfg.Webhook() {
		err = retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			_, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
				URL:            a.cfg.Telegram.WebhookURL,
				SecretToken:    a.cfg.Telegram.WebhookSecret,
				AllowedUpdates: []string{"message", "callback_query"},
			})
			return err
		})
		if err != nil {
			a.shutdown(sch, disp, srv)
			return shared.MarkKind(fmt.Errorf("telegram: set webhook: %w", err), shared.KindDependencyFailure)
		}
		go func() {
			defer close(transportDone)
			b.StartWebhook(ctx)
		}()
	} else {
		// getUpdates не работает, пока у бота зарегистрирован вебхук
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			a.log.Warn("delete webhook", "err", err)
		}
		go func() {
			defer close(transportDone)
			b.Start(ctx)
		}()
	}

	a.log.Info("bot is running", "mode", mode, "username", me.Username, "commands", router.Commands(), "http_addr", a.cfg.HTTP.Addr)

	<-ctx.Done()
	a.log.Info("shutting down")
	<-transportDone
	a.shutdown(sch, disp, srv)
	return nil
}

// whoAmI fetches the bot's own account; its username addresses commands in groups.
func (a *App) whoAmI(ctx context.Context, b *bot.Bot) (*models.User, error) {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	var me *models.User
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		var err error
		me, err = b.GetMe(ctx)
		return err
	})
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("telegram: get me: %w", err), shared.KindDependencyFailure)
	}
	return me, nil
}

// publishCommands sets the command menu shown by Telegram clients.
func (a *App) publishCommands(ctx context.Context, b *bot.Bot, router *telegram.Router) error {
	descriptions := map[string]string{"start": a.catalog.StartDescription}
	cmds := make([]models.BotCommand, 0, len(router.Commands()))
	for _, name := range router.Commands() {
		cmds = append(cmds, models.BotCommand{Command: name, Description: descriptions[name]})
	}
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		_, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: cmds})
		return err
	})
}

// shutdown stops the scheduler, drains queued updates and stops the HTTP server.
func (a *App) shutdown(sch *scheduler.Scheduler, disp *telegram.Dispatcher, srv *httpapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = sch.Stop(ctx)
	disp.Close()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", "err", err)
	}
	a.log.Info("stopped")
}
