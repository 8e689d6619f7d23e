package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/journal"
	"poliglotbot/internal/platform/metrics"
)

const journalTimeout = 3 * time.Second

// Recorder is the write side of the launch journal.
type Recorder interface {
	Record(ctx context.Context, l journal.Launch) error
}

// Journal записывает в журнал запусков каждый /start, на который ответ ушёл успешно.
// Команда берётся из ctx (Router.Gate). Ошибка записи только логируется.
func Journal(rec Recorder, log *slog.Logger) Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, upd *models.Update) error {
			if err := next(ctx, upd); err != nil {
				return err
			}
			if cmd, ok := telegram.CommandFrom(ctx); !ok || cmd != "start" || upd.Message == nil {
				return nil
			}
			msg := upd.Message
			l := journal.Launch{ID: uuid.New(), ChatID: msg.Chat.ID, At: time.Now().UTC()}
			if msg.From != nil {
				l.UserID = msg.From.ID
				l.Username = msg.From.Username
				l.LanguageCode = msg.From.LanguageCode
			}
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
			defer cancel()
			err := rec.Record(wctx, l)
			metrics.ObserveLaunchRecorded(err)
			if err != nil {
				log.Warn("launch not recorded", "chat_id", l.ChatID, "err", err)
			}
			return nil
		}
	}
}
