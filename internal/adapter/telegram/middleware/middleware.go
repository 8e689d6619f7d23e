// Package middleware содержит телеграм‑middleware: восстановление после паники, логирование,
// ограничение частоты, ACL и журнал запусков.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/adapter/telegram"
)

// Middleware wraps telegram.HandlerFunc.
type Middleware func(telegram.HandlerFunc) telegram.HandlerFunc

// Chain applies middlewares in order: the first one is the outermost.
func Chain(h telegram.HandlerFunc, mws ...Middleware) telegram.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover не даёт панике в хендлере уронить воркер диспетчера; паника возвращается ошибкой.
func Recover(log *slog.Logger) Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, upd *models.Update) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panic", "update_id", upd.ID, "panic", r, "stack", string(debug.Stack()))
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, upd)
		}
	}
}

// Logging пишет в debug каждое входящее обновление, ошибку обработки в warn.
func Logging(log *slog.Logger) Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, upd *models.Update) error {
			attrs := []any{"update_id", upd.ID, "chat_id", telegram.ChatID(upd), "user_id", telegram.UserID(upd)}
			if upd.Message != nil {
				if cmd, _, ok := telegram.ParseCommand(upd.Message.Text); ok {
					attrs = append(attrs, "command", cmd)
				}
			}
			log.Debug("update received", attrs...)
			err := next(ctx, upd)
			if err != nil {
				log.Warn("update failed", append(attrs, "err", err)...)
			}
			return err
		}
	}
}

// Detach отвязывает обработку апдейта от отмены контекста транспорта, чтобы при остановке
// уже принятые апдейты получили ответ; timeout ограничивает обработку одного апдейта.
func Detach(timeout time.Duration) Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, upd *models.Update) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			defer cancel()
			return next(ctx, upd)
		}
	}
}
