package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/adapter/telegram"
	"poliglotbot/internal/platform/metrics"
)

// RateLimiter restricts request frequency per user. Zero rate disables it.
type RateLimiter struct {
	mu     sync.Mutex
	last   map[int64]time.Time
	rate   time.Duration
	now    func() time.Time
	sender telegram.Sender
	text   string
}

// NewRateLimiter creates limiter with given rate. A limited user gets text through sender.
func NewRateLimiter(rate time.Duration, sender telegram.Sender, text string) *RateLimiter {
	return &RateLimiter{last: make(map[int64]time.Time), rate: rate, now: time.Now, sender: sender, text: text}
}

// Allow returns false if user hits the limit.
func (r *RateLimiter) Allow(userID int64) bool {
	if r.rate <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if t, ok := r.last[userID]; ok && now.Sub(t) < r.rate {
		return false
	}
	r.last[userID] = now
	// старые записи больше не влияют на решение
	if len(r.last) > 10000 {
		for id, t := range r.last {
			if now.Sub(t) >= r.rate {
				delete(r.last, id)
			}
		}
	}
	return true
}

// Middleware checks rate limit before calling next handler.
// Only commands marked by Router.Gate are counted; other updates pass untouched.
func (r *RateLimiter) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, upd *models.Update) error {
		if _, ok := telegram.CommandFrom(ctx); !ok {
			return next(ctx, upd)
		}
		uid := telegram.UserID(upd)
		if uid != 0 && !r.Allow(uid) {
			metrics.IncRateLimited()
			if chat := telegram.ChatID(upd); chat != 0 && r.text != "" && r.sender != nil {
				return r.sender.Send(ctx, chat, r.text, nil)
			}
			return nil
		}
		return next(ctx, upd)
	}
}
