package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/platform/metrics"
)

// CommandHandler handles one slash command.
type CommandHandler interface {
	Handle(ctx context.Context, msg *models.Message) error
}

// CommandFunc adapts a function to CommandHandler.
type CommandFunc func(ctx context.Context, msg *models.Message) error

func (f CommandFunc) Handle(ctx context.Context, msg *models.Message) error { return f(ctx, msg) }

type commandKey struct{}

// WithCommand marks ctx with the registered command the update invokes.
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandKey{}, name)
}

// CommandFrom returns the command set by WithCommand.
func CommandFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(commandKey{}).(string)
	return name, ok && name != ""
}

// Router routes command messages to registered handlers.
// Everything that is not a registered command addressed to this bot is ignored.
type Router struct {
	log      *slog.Logger
	username string
	handlers map[string]CommandHandler
}

// NewRouter creates a router for the bot with the given username (without "@").
// "/start@<username>" is accepted case-insensitively, commands for other bots are ignored.
// With an empty username only bare commands match.
func NewRouter(log *slog.Logger, username string) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		log:      log,
		username: strings.TrimPrefix(username, "@"),
		handlers: make(map[string]CommandHandler),
	}
}

// Register binds a command name (without the slash) to h. Not safe for use after Handle started.
func (r *Router) Register(name string, h CommandHandler) {
	r.handlers[strings.ToLower(strings.TrimPrefix(name, "/"))] = h
}

// Commands lists registered command names in sorted order.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Match returns the registered command msg invokes.
func (r *Router) Match(msg *models.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	name, target, ok := ParseCommand(msg.Text)
	if !ok {
		return "", false
	}
	if target != "" && (r.username == "" || !strings.EqualFold(target, r.username)) {
		return "", false
	}
	if _, ok := r.handlers[name]; !ok {
		return "", false
	}
	return name, true
}

// Gate passes on only updates that invoke a registered command, with the command put into ctx.
// Middlewares placed after it see nothing else.
func (r *Router) Gate(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *models.Update) error {
		name, ok := r.Match(upd.Message)
		if !ok {
			if upd.Message != nil {
				if cmd, target, isCmd := ParseCommand(upd.Message.Text); isCmd {
					r.log.Debug("command ignored", "command", cmd, "target", target, "chat_id", upd.Message.Chat.ID)
				}
			}
			return nil
		}
		return next(WithCommand(ctx, name), upd)
	}
}

// Handle is a HandlerFunc. It returns the error of the command handler.
func (r *Router) Handle(ctx context.Context, upd *models.Update) error {
	name, ok := CommandFrom(ctx)
	if !ok {
		if name, ok = r.Match(upd.Message); !ok {
			return nil
		}
	}
	h, ok := r.handlers[name]
	if !ok || upd.Message == nil {
		return nil
	}
	metrics.IncCommand(name)
	err := h.Handle(ctx, upd.Message)
	metrics.ObserveReply(err)
	if err != nil {
		return fmt.Errorf("command /%s: %w", name, err)
	}
	return nil
}

// ParseCommand splits text like "/Start@PoliglotBot payload" into the lowercase command
// and the bot username it is addressed to (empty when there is none).
func ParseCommand(text string) (name, target string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word, target = word[:i], word[i+1:]
	}
	if word == "" {
		return "", "", false
	}
	return strings.ToLower(word), target, true
}
