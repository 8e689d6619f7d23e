package middleware

import (
	"context"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/adapter/telegram"
)

// ACL проверяет доступ по списку разрешённых Telegram user IDs.
// Пустой список пропускает всех.
type ACL struct {
	allowed map[int64]struct{}
	sender  telegram.Sender
	text    string
}

// NewACL создаёт ACL по списку ID; отказ отправляется текстом text.
func NewACL(ids []int64, sender telegram.Sender, text string) *ACL {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &ACL{allowed: m, sender: sender, text: text}
}

// IsAllowed сообщает, имеет ли пользователь доступ
func (a *ACL) IsAllowed(id int64) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[id]
	return ok
}

// Middleware блокирует выполнение хендлера для неразрешённых пользователей.
// Отказ отправляется только на команду, отмеченную Router.Gate; остальное отбрасывается молча.
func (a *ACL) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, upd *models.Update) error {
		if a.IsAllowed(telegram.UserID(upd)) {
			return next(ctx, upd)
		}
		if _, ok := telegram.CommandFrom(ctx); !ok {
			return nil
		}
		if chat := telegram.ChatID(upd); chat != 0 && a.sender != nil && a.text != "" {
			return a.sender.Send(ctx, chat, a.text, nil)
		}
		return nil
	}
}
