package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/messages"
)

type sent struct {
	chatID int64
	text   string
	btn    *telegram.Button
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, btn *telegram.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatID: chatID, text: text, btn: btn})
	return f.err
}

func startMsg(chatID int64) *models.Message {
	return &models.Message{Chat: models.Chat{ID: chatID}, From: &models.User{ID: chatID}, Text: "/start"}
}

func TestStart_SendsWelcomeWithWebAppButton(t *testing.T) {
	s := &fakeSender{}
	h := NewStart(s, "https://poliglot.example.app", messages.Default())

	require.NoError(t, h.Handle(context.Background(), startMsg(12345)))

	require.Len(t, s.msgs, 1)
	m := s.msgs[0]
	assert.Equal(t, int64(12345), m.chatID)
	assert.True(t, strings.HasPrefix(m.text, "👋"))
	require.NotNil(t, m.btn)
	assert.Equal(t, "https://poliglot.example.app", m.btn.URL)
	assert.Equal(t, messages.Default().StartButton, m.btn.Label)
}

func TestStart_ButtonFollowsConfiguredURL(t *testing.T) {
	for _, url := range []string{"https://a.example.app", "https://b.example.app/quiz"} {
		s := &fakeSender{}
		require.NoError(t, NewStart(s, url, messages.Default()).Handle(context.Background(), startMsg(1)))
		require.Len(t, s.msgs, 1)
		assert.Equal(t, url, s.msgs[0].btn.URL)
	}
}

func TestStart_SendErrorIsReturned(t *testing.T) {
	s := &fakeSender{err: errors.New("network down")}
	err := NewStart(s, "https://x.example.app", messages.Default()).Handle(context.Background(), startMsg(1))
	require.Error(t, err)
	assert.Len(t, s.msgs, 1, "no retry")
}

func TestStart_RepeatedInvocationsAreIdentical(t *testing.T) {
	s := &fakeSender{}
	h := NewStart(s, "https://x.example.app", messages.Default())
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, startMsg(1)))
	require.NoError(t, h.Handle(ctx, startMsg(1)))

	require.Len(t, s.msgs, 2)
	assert.Equal(t, s.msgs[0].text, s.msgs[1].text)
	assert.Equal(t, *s.msgs[0].btn, *s.msgs[1].btn)
}

func TestBuildReply(t *testing.T) {
	c := messages.Catalog{Welcome: "👋 Hi", StartButton: "Go"}
	assert.Equal(t, Reply{Text: "👋 Hi", Button: telegram.Button{Label: "Go", URL: "https://x"}}, BuildReply("https://x", c))
}
