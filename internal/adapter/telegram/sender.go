package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/shared"
)

// Button is an inline button that opens a Telegram Mini App.
type Button struct {
	Label string
	URL   string
}

// Sender delivers text messages to a chat, optionally with one WebApp button.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, btn *Button) error
}

// MessageAPI is the part of *bot.Bot that BotSender needs.
type MessageAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// BotSender sends messages through the Bot API.
type BotSender struct {
	api MessageAPI
}

// NewBotSender wraps api (usually *bot.Bot).
func NewBotSender(api MessageAPI) *BotSender {
	return &BotSender{api: api}
}

// Send implements Sender.
func (s *BotSender) Send(ctx context.Context, chatID int64, text string, btn *Button) error {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if btn != nil {
		params.ReplyMarkup = WebAppKeyboard(*btn)
	}
	_, err := s.api.SendMessage(ctx, params)
	if err != nil {
		return shared.MarkKind(fmt.Errorf("send message to chat %d: %w", chatID, err), shared.KindDependencyFailure)
	}
	return nil
}

// WebAppKeyboard renders a one-row keyboard with a single WebApp button.
func WebAppKeyboard(btn Button) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: btn.Label, WebApp: &models.WebAppInfo{URL: btn.URL}}},
		},
	}
}

// NopSender logs messages instead of sending them (TELEGRAM_DRY_RUN).
type NopSender struct {
	log *slog.Logger
}

func NewNopSender(log *slog.Logger) *NopSender {
	if log == nil {
		log = slog.Default()
	}
	return &NopSender{log: log}
}

func (s *NopSender) Send(_ context.Context, chatID int64, text string, btn *Button) error {
	attrs := []any{slog.Int64("chat_id", chatID), slog.String("text", text)}
	if btn != nil {
		attrs = append(attrs, slog.String("button", btn.Label), slog.String("url", btn.URL))
	}
	s.log.Info("dry run: message not sent", attrs...)
	return nil
}
