// Package handlers contains Telegram command handlers.
package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/messages"
)

// Reply is what /start answers with.
type Reply struct {
	Text   string
	Button telegram.Button
}

// BuildReply assembles the welcome text and the button that opens the web app.
func BuildReply(webAppURL string, catalog messages.Catalog) Reply {
	return Reply{
		Text:   catalog.Welcome,
		Button: telegram.Button{Label: catalog.StartButton, URL: webAppURL},
	}
}

// Start handles /start command.
type Start struct {
	sender telegram.Sender
	reply  Reply
}

// NewStart builds the handler; the reply is fixed for the lifetime of the process.
func NewStart(sender telegram.Sender, webAppURL string, catalog messages.Catalog) *Start {
	return &Start{sender: sender, reply: BuildReply(webAppURL, catalog)}
}

// Handle sends one welcome message with the web app button to the chat of msg.
func (h *Start) Handle(ctx context.Context, msg *models.Message) error {
	btn := h.reply.Button
	return h.sender.Send(ctx, msg.Chat.ID, h.reply.Text, &btn)
}
